package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
)

// FeedImportRepository defines operations for managing import runs and
// their step logs.
type FeedImportRepository interface {
	// CreateFeedImport inserts a new import run and fills in its
	// generated fields.
	CreateFeedImport(ctx context.Context, feedImport *models.FeedImport) error

	// UpdateFeedImport persists the run's counters, completion flag
	// and timestamp. Called after every processed item so partial
	// progress survives a crash.
	UpdateFeedImport(ctx context.Context, feedImport *models.FeedImport) error

	// GetFeedImportByID retrieves a single import run.
	GetFeedImportByID(ctx context.Context, importID int64) (*models.FeedImport, error)

	// ListFeedImports retrieves import runs for a feed, newest first.
	ListFeedImports(ctx context.Context, feedID int64, limit, offset int) ([]*models.FeedImport, error)

	// CreateStep appends an immutable outcome record to a run.
	CreateStep(ctx context.Context, step *models.FeedImportStep) error

	// ListSteps retrieves a run's step log in creation order.
	ListSteps(ctx context.Context, importID int64) ([]*models.FeedImportStep, error)

	// CountStepsByType tallies a run's step log. Used to reconcile the
	// denormalized counters against the authoritative log.
	CountStepsByType(ctx context.Context, importID int64) (map[models.StepType]int, error)
}

type feedImportRepository struct {
	pool *pgxpool.Pool
}

// NewFeedImportRepository creates a new FeedImportRepository.
func NewFeedImportRepository(pool *pgxpool.Pool) FeedImportRepository {
	return &feedImportRepository{pool: pool}
}

func (r *feedImportRepository) CreateFeedImport(ctx context.Context, feedImport *models.FeedImport) error {
	query := `
		INSERT INTO feed_imports (uuid, feed_id, is_complete, error_count, import_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		feedImport.UUID,
		feedImport.FeedID,
		feedImport.IsComplete,
		feedImport.ErrorCount,
		feedImport.ImportCount,
		feedImport.CreatedAt,
		feedImport.UpdatedAt,
	).Scan(&feedImport.ID, &feedImport.CreatedAt, &feedImport.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create feed import")
	}

	return nil
}

func (r *feedImportRepository) UpdateFeedImport(ctx context.Context, feedImport *models.FeedImport) error {
	query := `
		UPDATE feed_imports
		SET is_complete = $2,
		    error_count = $3,
		    import_count = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		feedImport.ID,
		feedImport.IsComplete,
		feedImport.ErrorCount,
		feedImport.ImportCount,
	).Scan(&feedImport.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "update feed import")
	}

	return nil
}

func (r *feedImportRepository) GetFeedImportByID(ctx context.Context, importID int64) (*models.FeedImport, error) {
	query := `
		SELECT id, uuid, feed_id, is_complete, error_count, import_count, created_at, updated_at
		FROM feed_imports
		WHERE id = $1
	`

	feedImport := &models.FeedImport{}
	err := r.pool.QueryRow(ctx, query, importID).Scan(
		&feedImport.ID,
		&feedImport.UUID,
		&feedImport.FeedID,
		&feedImport.IsComplete,
		&feedImport.ErrorCount,
		&feedImport.ImportCount,
		&feedImport.CreatedAt,
		&feedImport.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get feed import by id")
	}

	return feedImport, nil
}

func (r *feedImportRepository) ListFeedImports(ctx context.Context, feedID int64, limit, offset int) ([]*models.FeedImport, error) {
	query := `
		SELECT id, uuid, feed_id, is_complete, error_count, import_count, created_at, updated_at
		FROM feed_imports
		WHERE feed_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, feedID, limit, offset)
	if err != nil {
		return nil, db.WrapError(err, "list feed imports")
	}
	defer rows.Close()

	var imports []*models.FeedImport
	for rows.Next() {
		feedImport := &models.FeedImport{}
		err := rows.Scan(
			&feedImport.ID,
			&feedImport.UUID,
			&feedImport.FeedID,
			&feedImport.IsComplete,
			&feedImport.ErrorCount,
			&feedImport.ImportCount,
			&feedImport.CreatedAt,
			&feedImport.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feed import: %w", err)
		}
		imports = append(imports, feedImport)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed imports: %w", err)
	}

	return imports, nil
}

func (r *feedImportRepository) CreateStep(ctx context.Context, step *models.FeedImportStep) error {
	query := `
		INSERT INTO feed_import_steps (feed_import_id, step_type, video_id, traceback)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		step.FeedImportID,
		step.StepType,
		step.VideoID,
		step.Traceback,
	).Scan(&step.ID, &step.CreatedAt)

	if err != nil {
		return db.WrapError(err, "create import step")
	}

	return nil
}

func (r *feedImportRepository) ListSteps(ctx context.Context, importID int64) ([]*models.FeedImportStep, error) {
	query := `
		SELECT id, feed_import_id, step_type, video_id, traceback, created_at
		FROM feed_import_steps
		WHERE feed_import_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, importID)
	if err != nil {
		return nil, db.WrapError(err, "list import steps")
	}
	defer rows.Close()

	return scanSteps(rows)
}

func (r *feedImportRepository) CountStepsByType(ctx context.Context, importID int64) (map[models.StepType]int, error) {
	query := `
		SELECT step_type, COUNT(*)
		FROM feed_import_steps
		WHERE feed_import_id = $1
		GROUP BY step_type
	`

	rows, err := r.pool.Query(ctx, query, importID)
	if err != nil {
		return nil, db.WrapError(err, "count import steps")
	}
	defer rows.Close()

	counts := make(map[models.StepType]int)
	for rows.Next() {
		var stepType models.StepType
		var count int
		if err := rows.Scan(&stepType, &count); err != nil {
			return nil, fmt.Errorf("scan step count: %w", err)
		}
		counts[stepType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step counts: %w", err)
	}

	return counts, nil
}

func scanSteps(rows pgx.Rows) ([]*models.FeedImportStep, error) {
	var steps []*models.FeedImportStep

	for rows.Next() {
		step := &models.FeedImportStep{}
		err := rows.Scan(
			&step.ID,
			&step.FeedImportID,
			&step.StepType,
			&step.VideoID,
			&step.Traceback,
			&step.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan import step: %w", err)
		}
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import steps: %w", err)
	}

	return steps, nil
}
