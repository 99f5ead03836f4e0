package models

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// Watch is a record of a video being viewed.
type Watch struct {
	ID        int64     `db:"id" json:"id"`
	UUID      uuid.UUID `db:"uuid" json:"uuid"`
	VideoID   int64     `db:"video_id" json:"video_id"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	// Watch queries may want to exclude "bot", "spider", "crawler",
	// etc. from counts.
	UserAgent string    `db:"user_agent" json:"user_agent"`
	WatchedAt time.Time `db:"watched_at" json:"watched_at"`
}

// NewWatch creates a Watch for the given video. Unparseable IP
// addresses are recorded as 0.0.0.0.
func NewWatch(videoID int64, ipAddress, userAgent string) *Watch {
	if net.ParseIP(ipAddress) == nil {
		ipAddress = "0.0.0.0"
	}
	return &Watch{
		UUID:      uuid.New(),
		VideoID:   videoID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		WatchedAt: time.Now(),
	}
}
