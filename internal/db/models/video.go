package models

import "time"

// VideoStatus is the moderation/publication state of a Video.
type VideoStatus string

const (
	VideoUnpublished     VideoStatus = "unpublished"
	VideoNeedsModeration VideoStatus = "needs moderation"
	VideoPublished       VideoStatus = "published"
	VideoHidden          VideoStatus = "hidden"
)

// Video is the canonical internal representation of one piece of
// content, either imported from a feed or created manually.
type Video struct {
	ID int64 `db:"id" json:"id"`

	// OriginalURL is the URL a user or feed gave as "the" URL for this
	// video. It may or may not match WebURL or any file URL, and may
	// be empty if only embed markup is known.
	OriginalURL string `db:"original_url" json:"original_url"`
	// WebURL is the canonical web home of the video as best we can tell.
	WebURL            string `db:"web_url" json:"web_url"`
	EmbedCode         string `db:"embed_code" json:"embed_code"`
	FlashEnclosureURL string `db:"flash_enclosure_url" json:"flash_enclosure_url"`
	Name              string `db:"name" json:"name"`
	Description       string `db:"description" json:"description"`
	ThumbnailURL      string `db:"thumbnail_url" json:"thumbnail_url"`
	GUID              string `db:"guid" json:"guid"`

	// FeedID is null for manually created videos.
	FeedID *int64 `db:"feed_id" json:"feed_id"`

	OwnerName  string `db:"owner_name" json:"owner_name"`
	OwnerEmail string `db:"owner_email" json:"owner_email"`

	// Cached information from the external source.
	ExternalUserUsername   string     `db:"external_user_username" json:"external_user_username"`
	ExternalUserURL        string     `db:"external_user_url" json:"external_user_url"`
	ExternalThumbnailURL   string     `db:"external_thumbnail_url" json:"external_thumbnail_url"`
	ExternalThumbnailTries int        `db:"external_thumbnail_tries" json:"external_thumbnail_tries"`
	ExternalPublishedAt    *time.Time `db:"external_published_at" json:"external_published_at"`

	Status      VideoStatus `db:"status" json:"status"`
	PublishedAt *time.Time  `db:"published_at" json:"published_at"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Publish transitions the video to the published state and stamps
// PublishedAt. PublishedAt is never cleared retroactively if the status
// later changes away from published.
func (v *Video) Publish(at time.Time) {
	v.Status = VideoPublished
	v.PublishedAt = &at
	v.UpdatedAt = at
}

// VideoFile is a playable or downloadable variant of a Video.
type VideoFile struct {
	ID      int64  `db:"id" json:"id"`
	VideoID int64  `db:"video_id" json:"video_id"`
	URL     string `db:"url" json:"url"`
	// Length is the byte length when the source reported one.
	Length   *int64 `db:"length" json:"length"`
	MimeType string `db:"mime_type" json:"mime_type"`
}
