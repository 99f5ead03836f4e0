// Package repository contains pgx-backed persistence for the feed
// import engine's entities.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
)

// FeedRepository defines operations for managing feeds.
type FeedRepository interface {
	// CreateFeed inserts a new feed and fills in its generated fields.
	CreateFeed(ctx context.Context, feed *models.Feed) error

	// GetFeedByID retrieves a single feed by ID.
	GetFeedByID(ctx context.Context, feedID int64) (*models.Feed, error)

	// GetFeedByURL retrieves a feed by its original URL.
	GetFeedByURL(ctx context.Context, originalURL string) (*models.Feed, error)

	// ListFeeds retrieves feeds with pagination.
	ListFeeds(ctx context.Context, limit, offset int) ([]*models.Feed, error)

	// ListAutomaticImportFeeds retrieves feeds with automatic imports
	// enabled.
	ListAutomaticImportFeeds(ctx context.Context) ([]*models.Feed, error)

	// UpdateFeed persists the feed's mutable fields (settings, cached
	// metadata, conditional-fetch tokens).
	UpdateFeed(ctx context.Context, feed *models.Feed) error

	// DeleteFeed removes a feed and everything hanging off it.
	DeleteFeed(ctx context.Context, feedID int64) error
}

type feedRepository struct {
	pool *pgxpool.Pool
}

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(pool *pgxpool.Pool) FeedRepository {
	return &feedRepository{pool: pool}
}

const feedColumns = `id, original_url, name, description, web_url, thumbnail_url,
	moderate_imported_videos, enable_automatic_imports, stop_if_seen,
	update_metadata_on_import, external_etag, external_last_modified,
	owner_name, owner_email, created_at, updated_at`

func (r *feedRepository) CreateFeed(ctx context.Context, feed *models.Feed) error {
	query := `
		INSERT INTO feeds (original_url, name, description, web_url, thumbnail_url,
			moderate_imported_videos, enable_automatic_imports, stop_if_seen,
			update_metadata_on_import, external_etag, external_last_modified,
			owner_name, owner_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		feed.OriginalURL,
		feed.Name,
		feed.Description,
		feed.WebURL,
		feed.ThumbnailURL,
		feed.ModerateImportedVideos,
		feed.EnableAutomaticImports,
		feed.StopIfSeen,
		feed.UpdateMetadataOnImport,
		feed.ExternalETag,
		feed.ExternalLastModified,
		feed.OwnerName,
		feed.OwnerEmail,
		feed.CreatedAt,
		feed.UpdatedAt,
	).Scan(&feed.ID, &feed.CreatedAt, &feed.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create feed")
	}

	return nil
}

func (r *feedRepository) GetFeedByID(ctx context.Context, feedID int64) (*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1`

	feed, err := scanFeed(r.pool.QueryRow(ctx, query, feedID))
	if err != nil {
		return nil, db.WrapError(err, "get feed by id")
	}

	return feed, nil
}

func (r *feedRepository) GetFeedByURL(ctx context.Context, originalURL string) (*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE original_url = $1`

	feed, err := scanFeed(r.pool.QueryRow(ctx, query, originalURL))
	if err != nil {
		return nil, db.WrapError(err, "get feed by url")
	}

	return feed, nil
}

func (r *feedRepository) ListFeeds(ctx context.Context, limit, offset int) ([]*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, db.WrapError(err, "list feeds")
	}
	defer rows.Close()

	return scanFeeds(rows)
}

func (r *feedRepository) ListAutomaticImportFeeds(ctx context.Context) ([]*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds
		WHERE enable_automatic_imports = TRUE
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list automatic import feeds")
	}
	defer rows.Close()

	return scanFeeds(rows)
}

func (r *feedRepository) UpdateFeed(ctx context.Context, feed *models.Feed) error {
	query := `
		UPDATE feeds
		SET name = $2,
		    description = $3,
		    web_url = $4,
		    thumbnail_url = $5,
		    moderate_imported_videos = $6,
		    enable_automatic_imports = $7,
		    stop_if_seen = $8,
		    update_metadata_on_import = $9,
		    external_etag = $10,
		    external_last_modified = $11,
		    owner_name = $12,
		    owner_email = $13,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		feed.ID,
		feed.Name,
		feed.Description,
		feed.WebURL,
		feed.ThumbnailURL,
		feed.ModerateImportedVideos,
		feed.EnableAutomaticImports,
		feed.StopIfSeen,
		feed.UpdateMetadataOnImport,
		feed.ExternalETag,
		feed.ExternalLastModified,
		feed.OwnerName,
		feed.OwnerEmail,
	).Scan(&feed.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "update feed")
	}

	return nil
}

func (r *feedRepository) DeleteFeed(ctx context.Context, feedID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM feeds WHERE id = $1`, feedID)
	if err != nil {
		return db.WrapError(err, "delete feed")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "delete feed")
	}

	return nil
}

func scanFeed(row pgx.Row) (*models.Feed, error) {
	feed := &models.Feed{}
	err := row.Scan(
		&feed.ID,
		&feed.OriginalURL,
		&feed.Name,
		&feed.Description,
		&feed.WebURL,
		&feed.ThumbnailURL,
		&feed.ModerateImportedVideos,
		&feed.EnableAutomaticImports,
		&feed.StopIfSeen,
		&feed.UpdateMetadataOnImport,
		&feed.ExternalETag,
		&feed.ExternalLastModified,
		&feed.OwnerName,
		&feed.OwnerEmail,
		&feed.CreatedAt,
		&feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

func scanFeeds(rows pgx.Rows) ([]*models.Feed, error) {
	var feeds []*models.Feed

	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}

	return feeds, nil
}
