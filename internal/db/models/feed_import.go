package models

import (
	"time"

	"github.com/google/uuid"
)

// StepType classifies one event during a feed import run.
type StepType string

const (
	// StepImportErrored means something errored on the import level.
	StepImportErrored StepType = "import errored"
	// StepVideoSeen means an item was found to already be in the
	// database, i.e. previously imported.
	StepVideoSeen StepType = "video seen"
	// StepVideoInvalid means something semi-expected is wrong with the
	// video's fields.
	StepVideoInvalid StepType = "video invalid"
	// StepVideoErrored means something unexpected happened during the
	// import of a video.
	StepVideoErrored StepType = "video errored"
	// StepVideoImported means a video was successfully imported.
	StepVideoImported StepType = "video imported"
)

// FeedImport represents one execution attempt against a Feed.
type FeedImport struct {
	ID     int64     `db:"id" json:"id"`
	UUID   uuid.UUID `db:"uuid" json:"uuid"`
	FeedID int64     `db:"feed_id" json:"feed_id"`

	IsComplete bool `db:"is_complete" json:"is_complete"`

	// Denormalized counts, maintained incrementally as steps are
	// recorded. Eventually accurate: equal to the step log once the
	// run is complete.
	ErrorCount  int `db:"error_count" json:"error_count"`
	ImportCount int `db:"import_count" json:"import_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewFeedImport creates an in-progress FeedImport for the given feed.
func NewFeedImport(feedID int64) *FeedImport {
	now := time.Now()
	return &FeedImport{
		UUID:      uuid.New(),
		FeedID:    feedID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Tally updates the denormalized counters for a step of the given type.
func (fi *FeedImport) Tally(stepType StepType) {
	switch stepType {
	case StepImportErrored, StepVideoErrored:
		fi.ErrorCount++
	case StepVideoImported:
		fi.ImportCount++
	}
	fi.UpdatedAt = time.Now()
}

// FeedImportStep is an immutable outcome record for one event during a
// run. VideoID is nulled if the referenced video is later deleted; the
// step itself persists as an audit record.
type FeedImportStep struct {
	ID           int64    `db:"id" json:"id"`
	FeedImportID int64    `db:"feed_import_id" json:"feed_import_id"`
	StepType     StepType `db:"step_type" json:"step_type"`
	VideoID      *int64   `db:"video_id" json:"video_id"`
	Traceback    string   `db:"traceback" json:"traceback"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FeedImportIdentifier is a per-feed record of a content fingerprint
// already observed. Append-only; never expires.
type FeedImportIdentifier struct {
	ID             int64  `db:"id" json:"id"`
	FeedID         int64  `db:"feed_id" json:"feed_id"`
	IdentifierHash string `db:"identifier_hash" json:"identifier_hash"`
}
