// Package rss implements a scraper.Source over RSS and Atom feeds
// using gofeed. Media enclosures become file variants; items are
// complete as yielded, so RemoteVideo.Load is a no-op.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/vidfeed/video-feed-import-go/internal/scraper"
)

const sourceName = "rss"

// Source reads RSS/Atom feeds over HTTP with conditional-fetch support.
type Source struct {
	client *http.Client
}

// NewSource creates an RSS source. A nil client falls back to a default
// with a 30 second timeout.
func NewSource(client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{client: client}
}

func (s *Source) Name() string {
	return sourceName
}

// Handles accepts any http(s) URL; the RSS source is the fallback for
// feeds no specialized source claims, so it should be registered last.
func (s *Source) Handles(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (s *Source) Open(ctx context.Context, url string, opts scraper.OpenOptions) (scraper.Iterator, error) {
	return &iterator{
		source: s,
		url:    url,
		opts:   opts,
	}, nil
}

type iterator struct {
	source *Source
	url    string
	opts   scraper.OpenOptions

	metadata scraper.FeedMetadata
	items    []*gofeed.Item
	pos      int
	loaded   bool
}

func (it *iterator) Load(ctx context.Context) error {
	if it.loaded {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, it.url, nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}
	if it.opts.ETag != "" {
		req.Header.Set("If-None-Match", it.opts.ETag)
	}
	if it.opts.LastModified != nil {
		req.Header.Set("If-Modified-Since", it.opts.LastModified.UTC().Format(http.TimeFormat))
	}

	resp, err := it.source.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	it.metadata.ETag = resp.Header.Get("ETag")
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if parsed, err := http.ParseTime(lm); err == nil {
			it.metadata.LastModified = &parsed
		}
	}

	// 304 means the feed is unchanged since the cached tokens; yield
	// nothing rather than re-parsing old content.
	if resp.StatusCode == http.StatusNotModified {
		it.loaded = true
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	it.metadata.Title = feed.Title
	it.metadata.Webpage = feed.Link
	it.metadata.Description = feed.Description
	if feed.Image != nil {
		it.metadata.ThumbnailURL = feed.Image.URL
	}

	it.items = feed.Items
	if it.opts.MaxResults > 0 && len(it.items) > it.opts.MaxResults {
		it.items = it.items[:it.opts.MaxResults]
	}
	it.loaded = true

	return nil
}

func (it *iterator) Next(ctx context.Context) (scraper.RemoteVideo, error) {
	if !it.loaded {
		if err := it.Load(ctx); err != nil {
			return nil, err
		}
	}
	if it.pos >= len(it.items) {
		return nil, scraper.ErrEndOfFeed
	}

	item := it.items[it.pos]
	it.pos++

	return newRemoteVideo(item), nil
}

func (it *iterator) Metadata() scraper.FeedMetadata {
	return it.metadata
}

type remoteVideo struct {
	item  *gofeed.Item
	files []scraper.RemoteFile
}

func newRemoteVideo(item *gofeed.Item) *remoteVideo {
	rv := &remoteVideo{item: item}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		file := scraper.RemoteFile{
			URL:      enclosure.URL,
			MimeType: enclosure.Type,
		}
		if enclosure.Length != "" {
			if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
				file.Length = &length
			}
		}
		rv.files = append(rv.files, file)
	}

	return rv
}

// Load is a no-op: RSS items carry all their data in the feed document.
func (rv *remoteVideo) Load(ctx context.Context) error {
	return nil
}

func (rv *remoteVideo) URL() string {
	return rv.item.Link
}

func (rv *remoteVideo) Link() string {
	return rv.item.Link
}

func (rv *remoteVideo) EmbedCode() string {
	return ""
}

func (rv *remoteVideo) FlashEnclosureURL() string {
	return ""
}

func (rv *remoteVideo) Title() string {
	return rv.item.Title
}

func (rv *remoteVideo) Description() string {
	return rv.item.Description
}

func (rv *remoteVideo) GUID() string {
	return rv.item.GUID
}

func (rv *remoteVideo) User() string {
	if len(rv.item.Authors) > 0 && rv.item.Authors[0] != nil {
		return rv.item.Authors[0].Name
	}
	if rv.item.Author != nil {
		return rv.item.Author.Name
	}
	return ""
}

func (rv *remoteVideo) UserURL() string {
	return ""
}

func (rv *remoteVideo) ThumbnailURL() string {
	if rv.item.Image != nil {
		return rv.item.Image.URL
	}
	return ""
}

func (rv *remoteVideo) PublishDatetime() *time.Time {
	return rv.item.PublishedParsed
}

func (rv *remoteVideo) Files() []scraper.RemoteFile {
	return rv.files
}
