package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
)

// VideoRepository defines operations for managing videos and their file
// variants.
type VideoRepository interface {
	// CreateVideo inserts a new video and fills in its generated fields.
	CreateVideo(ctx context.Context, video *models.Video) error

	// GetVideoByID retrieves a single video by ID.
	GetVideoByID(ctx context.Context, videoID int64) (*models.Video, error)

	// ListVideos retrieves videos with pagination, optionally filtered
	// by status ("" means all).
	ListVideos(ctx context.Context, status models.VideoStatus, limit, offset int) ([]*models.Video, error)

	// ListVideosByFeed retrieves a feed's videos, newest first.
	ListVideosByFeed(ctx context.Context, feedID int64, limit, offset int) ([]*models.Video, error)

	// UpdateVideoStatus sets the status of a single video.
	UpdateVideoStatus(ctx context.Context, videoID int64, status models.VideoStatus) error

	// DeleteVideo removes a video. File variants cascade; any import
	// step referencing the video keeps its row with the reference
	// nulled.
	DeleteVideo(ctx context.Context, videoID int64) error

	// ListImportVideosByStatus retrieves videos created by the given
	// import run that are currently in the given status.
	ListImportVideosByStatus(ctx context.Context, importID int64, status models.VideoStatus) ([]*models.Video, error)

	// PublishVideos bulk-transitions the given videos to published,
	// stamping published_at. Returns the number of rows transitioned.
	PublishVideos(ctx context.Context, videoIDs []int64, at time.Time) (int64, error)

	// TransitionImportVideos bulk-moves an import run's videos from one
	// status to another. Returns the number of rows transitioned.
	TransitionImportVideos(ctx context.Context, importID int64, from, to models.VideoStatus) (int64, error)

	// CreateVideoFile inserts a file variant for a persisted video.
	CreateVideoFile(ctx context.Context, file *models.VideoFile) error

	// ListVideoFiles retrieves a video's file variants.
	ListVideoFiles(ctx context.Context, videoID int64) ([]*models.VideoFile, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

const videoColumns = `id, original_url, web_url, embed_code, flash_enclosure_url,
	name, description, thumbnail_url, guid, feed_id, owner_name, owner_email,
	external_user_username, external_user_url, external_thumbnail_url,
	external_thumbnail_tries, external_published_at, status, published_at,
	created_at, updated_at`

func (r *videoRepository) CreateVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (original_url, web_url, embed_code, flash_enclosure_url,
			name, description, thumbnail_url, guid, feed_id, owner_name, owner_email,
			external_user_username, external_user_url, external_thumbnail_url,
			external_thumbnail_tries, external_published_at, status, published_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		video.OriginalURL,
		video.WebURL,
		video.EmbedCode,
		video.FlashEnclosureURL,
		video.Name,
		video.Description,
		video.ThumbnailURL,
		video.GUID,
		video.FeedID,
		video.OwnerName,
		video.OwnerEmail,
		video.ExternalUserUsername,
		video.ExternalUserURL,
		video.ExternalThumbnailURL,
		video.ExternalThumbnailTries,
		video.ExternalPublishedAt,
		video.Status,
		video.PublishedAt,
		video.CreatedAt,
		video.UpdatedAt,
	).Scan(&video.ID, &video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create video")
	}

	return nil
}

func (r *videoRepository) GetVideoByID(ctx context.Context, videoID int64) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(r.pool.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) ListVideos(ctx context.Context, status models.VideoStatus, limit, offset int) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE ($1 = '' OR status = $1)
		ORDER BY published_at DESC NULLS LAST, updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, db.WrapError(err, "list videos")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) ListVideosByFeed(ctx context.Context, feedID int64, limit, offset int) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE feed_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, feedID, limit, offset)
	if err != nil {
		return nil, db.WrapError(err, "list videos by feed")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) UpdateVideoStatus(ctx context.Context, videoID int64, status models.VideoStatus) error {
	query := `
		UPDATE videos
		SET status = $2,
		    published_at = CASE WHEN $2 = 'published' THEN NOW() ELSE published_at END,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, videoID, string(status))
	if err != nil {
		return db.WrapError(err, "update video status")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update video status")
	}

	return nil
}

func (r *videoRepository) DeleteVideo(ctx context.Context, videoID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, videoID)
	if err != nil {
		return db.WrapError(err, "delete video")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "delete video")
	}

	return nil
}

func (r *videoRepository) ListImportVideosByStatus(ctx context.Context, importID int64, status models.VideoStatus) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE status = $2
		  AND id IN (
			SELECT video_id FROM feed_import_steps
			WHERE feed_import_id = $1 AND video_id IS NOT NULL
		  )
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, importID, string(status))
	if err != nil {
		return nil, db.WrapError(err, "list import videos by status")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) PublishVideos(ctx context.Context, videoIDs []int64, at time.Time) (int64, error) {
	if len(videoIDs) == 0 {
		return 0, nil
	}

	query := `
		UPDATE videos
		SET status = 'published',
		    published_at = $2,
		    updated_at = $2
		WHERE id = ANY($1)
	`

	tag, err := r.pool.Exec(ctx, query, videoIDs, at)
	if err != nil {
		return 0, db.WrapError(err, "publish videos")
	}

	return tag.RowsAffected(), nil
}

func (r *videoRepository) TransitionImportVideos(ctx context.Context, importID int64, from, to models.VideoStatus) (int64, error) {
	query := `
		UPDATE videos
		SET status = $3,
		    updated_at = NOW()
		WHERE status = $2
		  AND id IN (
			SELECT video_id FROM feed_import_steps
			WHERE feed_import_id = $1 AND video_id IS NOT NULL
		  )
	`

	tag, err := r.pool.Exec(ctx, query, importID, string(from), string(to))
	if err != nil {
		return 0, db.WrapError(err, "transition import videos")
	}

	return tag.RowsAffected(), nil
}

func (r *videoRepository) CreateVideoFile(ctx context.Context, file *models.VideoFile) error {
	query := `
		INSERT INTO video_files (video_id, url, length, mime_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		file.VideoID,
		file.URL,
		file.Length,
		file.MimeType,
	).Scan(&file.ID)

	if err != nil {
		return db.WrapError(err, "create video file")
	}

	return nil
}

func (r *videoRepository) ListVideoFiles(ctx context.Context, videoID int64) ([]*models.VideoFile, error) {
	query := `
		SELECT id, video_id, url, length, mime_type
		FROM video_files
		WHERE video_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, db.WrapError(err, "list video files")
	}
	defer rows.Close()

	var files []*models.VideoFile
	for rows.Next() {
		file := &models.VideoFile{}
		err := rows.Scan(&file.ID, &file.VideoID, &file.URL, &file.Length, &file.MimeType)
		if err != nil {
			return nil, fmt.Errorf("scan video file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video files: %w", err)
	}

	return files, nil
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	video := &models.Video{}
	err := row.Scan(
		&video.ID,
		&video.OriginalURL,
		&video.WebURL,
		&video.EmbedCode,
		&video.FlashEnclosureURL,
		&video.Name,
		&video.Description,
		&video.ThumbnailURL,
		&video.GUID,
		&video.FeedID,
		&video.OwnerName,
		&video.OwnerEmail,
		&video.ExternalUserUsername,
		&video.ExternalUserURL,
		&video.ExternalThumbnailURL,
		&video.ExternalThumbnailTries,
		&video.ExternalPublishedAt,
		&video.Status,
		&video.PublishedAt,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return video, nil
}

func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}
