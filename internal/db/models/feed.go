// Package models contains the persisted entities of the feed import
// engine.
package models

import "time"

// Feed represents a subscription to one external video source.
type Feed struct {
	ID          int64  `db:"id" json:"id"`
	OriginalURL string `db:"original_url" json:"original_url"`

	// Feed metadata, refreshed from the source while
	// UpdateMetadataOnImport is set.
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description"`
	WebURL       string `db:"web_url" json:"web_url"`
	ThumbnailURL string `db:"thumbnail_url" json:"thumbnail_url"`

	// Import settings.
	ModerateImportedVideos bool `db:"moderate_imported_videos" json:"moderate_imported_videos"`
	EnableAutomaticImports bool `db:"enable_automatic_imports" json:"enable_automatic_imports"`
	// Feeds are expected to stay in newest-first order, so a seen item
	// implies everything after it was already imported.
	StopIfSeen             bool `db:"stop_if_seen" json:"stop_if_seen"`
	UpdateMetadataOnImport bool `db:"update_metadata_on_import" json:"update_metadata_on_import"`

	// Conditional-fetch tokens cached from the last import.
	ExternalETag         string     `db:"external_etag" json:"external_etag"`
	ExternalLastModified *time.Time `db:"external_last_modified" json:"external_last_modified"`

	// Owner info. The owner is the person who created the feed and its
	// imported videos; they should always have editing access.
	OwnerName  string `db:"owner_name" json:"owner_name"`
	OwnerEmail string `db:"owner_email" json:"owner_email"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewFeed creates a Feed with the default import settings.
func NewFeed(originalURL string) *Feed {
	now := time.Now()
	return &Feed{
		OriginalURL:            originalURL,
		EnableAutomaticImports: true,
		StopIfSeen:             true,
		UpdateMetadataOnImport: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}
