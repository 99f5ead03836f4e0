// Package scraper defines the boundary to external feed-reading
// collaborators. The import engine only ever sees these interfaces; the
// actual fetching and protocol parsing live behind them.
package scraper

import (
	"context"
	"errors"
	"time"
)

// ErrEndOfFeed is returned by Iterator.Next when the sequence is
// exhausted.
var ErrEndOfFeed = errors.New("end of feed")

// ErrNoSuitableSource is returned by a Registry when no registered
// source handles the given URL.
var ErrNoSuitableSource = errors.New("no suitable feed source")

// OpenOptions carries per-open settings for a feed source.
type OpenOptions struct {
	// MaxResults caps the number of items the iterator will yield;
	// 0 means no limit.
	MaxResults int
	// APIKeys are source-specific credentials keyed by source name.
	APIKeys map[string]string
	// ETag and LastModified are conditional-fetch tokens cached from a
	// previous import. Sources that support them may use them to skip
	// already-delivered items server-side.
	ETag         string
	LastModified *time.Time
}

// FeedMetadata is feed-level information available after Iterator.Load.
type FeedMetadata struct {
	ETag         string
	LastModified *time.Time
	Title        string
	Webpage      string
	Description  string
	ThumbnailURL string
}

// RemoteFile describes one file variant offered by a remote video
// record.
type RemoteFile struct {
	URL      string
	Length   *int64
	MimeType string
	// Expires is non-nil for time-limited URLs, which are skipped both
	// for fingerprinting and for persistence.
	Expires *time.Time
}

// RemoteVideo is one item yielded by a feed iterator. Iterators may
// yield lightweight stubs; Load fetches the full detail.
type RemoteVideo interface {
	Load(ctx context.Context) error

	URL() string
	Link() string
	EmbedCode() string
	FlashEnclosureURL() string
	Title() string
	Description() string
	GUID() string
	User() string
	UserURL() string
	ThumbnailURL() string
	PublishDatetime() *time.Time
	Files() []RemoteFile
}

// Iterator is a lazy, forward-only, finite sequence of remote video
// records from one feed.
type Iterator interface {
	// Load fetches feed-level metadata. Must be called before Next or
	// Metadata.
	Load(ctx context.Context) error

	// Next returns the next record, or ErrEndOfFeed when exhausted.
	Next(ctx context.Context) (RemoteVideo, error)

	// Metadata returns the feed-level metadata gathered by Load.
	Metadata() FeedMetadata
}

// Source opens feeds it knows how to read.
type Source interface {
	// Name identifies the source, e.g. for API key lookup.
	Name() string

	// Handles reports whether this source can read the given URL.
	Handles(url string) bool

	// Open creates an iterator over the feed at the given URL.
	Open(ctx context.Context, url string, opts OpenOptions) (Iterator, error)
}

// Registry dispatches Open calls across registered sources, first
// match wins.
type Registry struct {
	sources []Source
}

// NewRegistry creates a Registry over the given sources.
func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// Register appends a source to the registry.
func (r *Registry) Register(source Source) {
	r.sources = append(r.sources, source)
}

// Open finds a source that handles the URL and opens it.
func (r *Registry) Open(ctx context.Context, url string, opts OpenOptions) (Iterator, error) {
	for _, source := range r.sources {
		if source.Handles(url) {
			return source.Open(ctx, url, opts)
		}
	}
	return nil, ErrNoSuitableSource
}
