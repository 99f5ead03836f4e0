package importer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vidfeed/video-feed-import-go/internal/scraper"
)

func sha1hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestFingerprints_AllFacets(t *testing.T) {
	t.Parallel()

	expires := time.Now().Add(time.Hour)
	remote := &fakeRemote{
		guid:  "guid-1",
		link:  "https://example.com/watch/1",
		flash: "https://example.com/flash/1.swf",
		embed: "<embed src='x'/>",
		files: []scraper.RemoteFile{
			{URL: "https://cdn.example.com/1.mp4"},
			{URL: "https://cdn.example.com/temp.mp4", Expires: &expires},
		},
	}

	got := Fingerprints(remote)

	want := []string{
		sha1hex("guid-1"),
		sha1hex("https://example.com/watch/1"),
		sha1hex("https://example.com/flash/1.swf"),
		sha1hex("<embed src='x'/>"),
		sha1hex("https://cdn.example.com/1.mp4"),
	}
	assert.Equal(t, want, got, "expiring file URLs must not contribute fingerprints")
}

func TestFingerprints_EmptyFacetsSkipped(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{guid: "only-guid"}
	got := Fingerprints(remote)

	require.Len(t, got, 1)
	assert.Equal(t, sha1hex("only-guid"), got[0])
}

func TestFingerprints_DuplicateFacetsCollapse(t *testing.T) {
	t.Parallel()

	// GUID and link carry the same value; one fingerprint results.
	remote := &fakeRemote{
		guid: "https://example.com/v/1",
		link: "https://example.com/v/1",
	}
	assert.Len(t, Fingerprints(remote), 1)
}

func TestFingerprints_NoFacets(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Fingerprints(&fakeRemote{}))
}

func TestFingerprints_Deterministic(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{
		guid: "guid-7",
		link: "https://example.com/watch/7",
	}
	assert.Equal(t, Fingerprints(remote), Fingerprints(remote))
}

func TestIdentifierIndex_IsSeen_MatchesOnAnyFacet(t *testing.T) {
	t.Parallel()

	repo := new(mockIdentifierRepo)
	index := NewIdentifierIndex(repo)

	remote := &fakeRemote{
		guid: "guid-2",
		link: "https://example.com/watch/2",
	}

	repo.On("HashesExist", mock.Anything, int64(5), []string{
		sha1hex("guid-2"),
		sha1hex("https://example.com/watch/2"),
	}).Return(true, nil)

	seen, err := index.IsSeen(context.Background(), 5, remote)
	require.NoError(t, err)
	assert.True(t, seen)
	repo.AssertExpectations(t)
}

func TestIdentifierIndex_IsSeen_NoFingerprints(t *testing.T) {
	t.Parallel()

	repo := new(mockIdentifierRepo)
	index := NewIdentifierIndex(repo)

	// A record with no identifying facets is never seen, and the store
	// is not consulted.
	seen, err := index.IsSeen(context.Background(), 5, &fakeRemote{})
	require.NoError(t, err)
	assert.False(t, seen)
	repo.AssertNotCalled(t, "HashesExist")
}

func TestIdentifierIndex_MarkSeen(t *testing.T) {
	t.Parallel()

	repo := new(mockIdentifierRepo)
	index := NewIdentifierIndex(repo)

	remote := &fakeRemote{guid: "guid-3"}
	repo.On("CreateHashes", mock.Anything, int64(9), []string{sha1hex("guid-3")}).
		Return(nil)

	require.NoError(t, index.MarkSeen(context.Background(), 9, remote))
	repo.AssertExpectations(t)
}
