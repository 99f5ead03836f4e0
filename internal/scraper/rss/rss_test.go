package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfeed/video-feed-import-go/internal/scraper"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Videos</title>
    <link>https://example.com</link>
    <description>all the videos</description>
    <item>
      <title>First</title>
      <link>https://example.com/watch/1</link>
      <guid>guid-1</guid>
      <description>the first one</description>
      <enclosure url="https://cdn.example.com/1.mp4" length="1024" type="video/mp4"/>
    </item>
    <item>
      <title>Second</title>
      <link>https://example.com/watch/2</link>
      <guid>guid-2</guid>
      <enclosure url="https://cdn.example.com/2.mp4" length="notanumber" type="video/mp4"/>
    </item>
    <item>
      <title>Third</title>
      <link>https://example.com/watch/3</link>
      <guid>guid-3</guid>
    </item>
  </channel>
</rss>`

func TestSource_Handles(t *testing.T) {
	t.Parallel()

	source := NewSource(nil)
	assert.True(t, source.Handles("https://example.com/feed.xml"))
	assert.True(t, source.Handles("http://example.com/feed"))
	assert.False(t, source.Handles("ftp://example.com/feed"))
	assert.False(t, source.Handles("not a url"))
}

func TestIterator_WalksFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer server.Close()

	source := NewSource(server.Client())
	it, err := source.Open(context.Background(), server.URL, scraper.OpenOptions{})
	require.NoError(t, err)
	require.NoError(t, it.Load(context.Background()))

	md := it.Metadata()
	assert.Equal(t, `"v1"`, md.ETag)
	require.NotNil(t, md.LastModified)
	assert.Equal(t, "Example Videos", md.Title)
	assert.Equal(t, "https://example.com", md.Webpage)
	assert.Equal(t, "all the videos", md.Description)

	first, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "First", first.Title())
	assert.Equal(t, "https://example.com/watch/1", first.Link())
	assert.Equal(t, "guid-1", first.GUID())
	assert.Equal(t, "the first one", first.Description())
	require.NoError(t, first.Load(context.Background()))

	files := first.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "https://cdn.example.com/1.mp4", files[0].URL)
	assert.Equal(t, "video/mp4", files[0].MimeType)
	require.NotNil(t, files[0].Length)
	assert.Equal(t, int64(1024), *files[0].Length)

	second, err := it.Next(context.Background())
	require.NoError(t, err)
	secondFiles := second.Files()
	require.Len(t, secondFiles, 1)
	assert.Nil(t, secondFiles[0].Length, "unparseable enclosure length is dropped")

	third, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, third.Files())

	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, scraper.ErrEndOfFeed)
}

func TestIterator_MaxResults(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedXML))
	}))
	defer server.Close()

	source := NewSource(server.Client())
	it, err := source.Open(context.Background(), server.URL, scraper.OpenOptions{MaxResults: 1})
	require.NoError(t, err)

	_, err = it.Next(context.Background())
	require.NoError(t, err)
	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, scraper.ErrEndOfFeed)
}

func TestIterator_ConditionalFetch(t *testing.T) {
	t.Parallel()

	lastModified := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	var gotETag, gotModifiedSince string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotETag = r.Header.Get("If-None-Match")
		gotModifiedSince = r.Header.Get("If-Modified-Since")
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	source := NewSource(server.Client())
	it, err := source.Open(context.Background(), server.URL, scraper.OpenOptions{
		ETag:         `"v1"`,
		LastModified: &lastModified,
	})
	require.NoError(t, err)
	require.NoError(t, it.Load(context.Background()))

	assert.Equal(t, `"v1"`, gotETag)
	assert.Equal(t, "Fri, 02 Jan 2026 15:04:05 GMT", gotModifiedSince)

	// 304 yields an empty sequence, not an error.
	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, scraper.ErrEndOfFeed)
	assert.Equal(t, `"v1"`, it.Metadata().ETag)
}

func TestIterator_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewSource(server.Client())
	it, err := source.Open(context.Background(), server.URL, scraper.OpenOptions{})
	require.NoError(t, err)

	err = it.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestIterator_MalformedFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not xml"))
	}))
	defer server.Close()

	source := NewSource(server.Client())
	it, err := source.Open(context.Background(), server.URL, scraper.OpenOptions{})
	require.NoError(t, err)

	err = it.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse feed")
}
