package importer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/internal/scraper"
)

// Fingerprints derives the stable content fingerprints of a remote
// video record: a SHA-1 digest of each of its identifying facets (guid,
// canonical link, flash enclosure URL, embed markup, and each
// non-expiring file URL). Empty facets are skipped and duplicates
// removed, so two records sharing any one facet are treated as the same
// content.
func Fingerprints(remote scraper.RemoteVideo) []string {
	identifiers := []string{
		remote.GUID(),
		remote.Link(),
		remote.FlashEnclosureURL(),
		remote.EmbedCode(),
	}
	for _, file := range remote.Files() {
		if file.Expires == nil {
			identifiers = append(identifiers, file.URL)
		}
	}

	seen := make(map[string]struct{}, len(identifiers))
	var hashes []string
	for _, identifier := range identifiers {
		if identifier == "" {
			continue
		}
		sum := sha1.Sum([]byte(identifier))
		hash := hex.EncodeToString(sum[:])
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		hashes = append(hashes, hash)
	}

	return hashes
}

// IdentifierIndex checks and records per-feed "already seen" membership
// for remote video records.
type IdentifierIndex struct {
	identifiers repository.IdentifierRepository
}

// NewIdentifierIndex creates an IdentifierIndex over the given store.
func NewIdentifierIndex(identifiers repository.IdentifierRepository) *IdentifierIndex {
	return &IdentifierIndex{identifiers: identifiers}
}

// IsSeen reports whether any of the record's fingerprints is already
// recorded for the feed. A record yielding zero fingerprints is never
// considered seen: novelty cannot be proven either way, so it keeps its
// chance to import.
func (ix *IdentifierIndex) IsSeen(ctx context.Context, feedID int64, remote scraper.RemoteVideo) (bool, error) {
	hashes := Fingerprints(remote)
	if len(hashes) == 0 {
		return false, nil
	}
	return ix.identifiers.HashesExist(ctx, feedID, hashes)
}

// MarkSeen records every fingerprint of the record against the feed.
// Safe to repeat; duplicate rows are tolerated by IsSeen.
func (ix *IdentifierIndex) MarkSeen(ctx context.Context, feedID int64, remote scraper.RemoteVideo) error {
	return ix.identifiers.CreateHashes(ctx, feedID, Fingerprints(remote))
}
