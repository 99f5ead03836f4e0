package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
)

// WatchRepository records and counts video views.
type WatchRepository interface {
	// CreateWatch inserts a view record for a video.
	CreateWatch(ctx context.Context, watch *models.Watch) error

	// CountWatches returns the number of recorded views for a video.
	CountWatches(ctx context.Context, videoID int64) (int64, error)
}

type watchRepository struct {
	pool *pgxpool.Pool
}

// NewWatchRepository creates a new WatchRepository.
func NewWatchRepository(pool *pgxpool.Pool) WatchRepository {
	return &watchRepository{pool: pool}
}

func (r *watchRepository) CreateWatch(ctx context.Context, watch *models.Watch) error {
	query := `
		INSERT INTO video_watches (uuid, video_id, ip_address, user_agent, watched_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		watch.UUID,
		watch.VideoID,
		watch.IPAddress,
		watch.UserAgent,
		watch.WatchedAt,
	).Scan(&watch.ID)

	if err != nil {
		return db.WrapError(err, "create watch")
	}

	return nil
}

func (r *watchRepository) CountWatches(ctx context.Context, videoID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM video_watches WHERE video_id = $1`, videoID,
	).Scan(&count)
	if err != nil {
		return 0, db.WrapError(err, "count watches")
	}

	return count, nil
}
