// Package testutil provides a containerized PostgreSQL database for
// repository integration tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:17-alpine"

// TestDatabase is a disposable, fully migrated database.
type TestDatabase struct {
	Pool      *pgxpool.Pool
	Container *postgres.PostgresContainer
	ConnStr   string
}

// SetupTestDatabase starts a PostgreSQL container, applies all
// migrations, and returns a ready pool. Callers should defer Cleanup.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("vidfeed_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	applyMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	return &TestDatabase{Pool: pool, Container: container, ConnStr: connStr}
}

func applyMigrations(t *testing.T, connStr string) {
	t.Helper()

	dir, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)

	m, err := migrate.New("file://"+dir, connStr)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Up(), "apply migrations")
}

// Cleanup closes the pool and terminates the container.
func (td *TestDatabase) Cleanup(t *testing.T) {
	t.Helper()
	if td.Pool != nil {
		td.Pool.Close()
	}
	if td.Container != nil {
		require.NoError(t, td.Container.Terminate(context.Background()))
	}
}

// TruncateTables empties every table so subtests start from a clean
// slate without paying for a new container.
func (td *TestDatabase) TruncateTables(t *testing.T) {
	t.Helper()
	_, err := td.Pool.Exec(context.Background(), `
		TRUNCATE TABLE video_watches, video_files, feed_import_steps,
			feed_import_identifiers, feed_imports, videos, feeds
			RESTART IDENTITY CASCADE;
	`)
	require.NoError(t, err)
}
