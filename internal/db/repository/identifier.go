package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidfeed/video-feed-import-go/internal/db"
)

// IdentifierRepository persists per-feed content fingerprints.
// The table is append-only; duplicate (feed, hash) pairs are tolerated
// by readers, so concurrent writers need no coordination.
type IdentifierRepository interface {
	// HashesExist reports whether any of the given fingerprint hashes
	// is already recorded for the feed.
	HashesExist(ctx context.Context, feedID int64, hashes []string) (bool, error)

	// CreateHashes records the given fingerprint hashes for the feed.
	CreateHashes(ctx context.Context, feedID int64, hashes []string) error
}

type identifierRepository struct {
	pool *pgxpool.Pool
}

// NewIdentifierRepository creates a new IdentifierRepository.
func NewIdentifierRepository(pool *pgxpool.Pool) IdentifierRepository {
	return &identifierRepository{pool: pool}
}

func (r *identifierRepository) HashesExist(ctx context.Context, feedID int64, hashes []string) (bool, error) {
	if len(hashes) == 0 {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM feed_import_identifiers
			WHERE feed_id = $1 AND identifier_hash = ANY($2)
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, feedID, hashes).Scan(&exists)
	if err != nil {
		return false, db.WrapError(err, "check identifier hashes")
	}

	return exists, nil
}

func (r *identifierRepository) CreateHashes(ctx context.Context, feedID int64, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(hashes))
	for _, hash := range hashes {
		rows = append(rows, []interface{}{feedID, hash})
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"feed_import_identifiers"},
		[]string{"feed_id", "identifier_hash"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return db.WrapError(err, "create identifier hashes")
	}

	return nil
}
