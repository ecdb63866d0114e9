package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the schema.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runTestMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runTestMigrations creates the schema directly. Kept in sync with the
// embedded migration files; the migrations package cannot be imported here
// without a cycle.
func runTestMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS token_records (
			owner            TEXT NOT NULL,
			mint             TEXT NOT NULL,
			name             TEXT NOT NULL,
			symbol           TEXT NOT NULL,
			decimals         SMALLINT NOT NULL,
			metadata_uri     TEXT NOT NULL DEFAULT '',
			image_uri        TEXT NOT NULL DEFAULT '',
			network          TEXT NOT NULL,
			mint_authority   TEXT NOT NULL DEFAULT '',
			freeze_authority TEXT NOT NULL DEFAULT '',
			update_authority TEXT NOT NULL DEFAULT '',
			created_at       BIGINT NOT NULL,
			PRIMARY KEY (owner, mint)
		)
	`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metadata_lookups (
			owner            TEXT NOT NULL,
			mint             TEXT NOT NULL,
			name             TEXT NOT NULL DEFAULT '',
			symbol           TEXT NOT NULL DEFAULT '',
			uri              TEXT NOT NULL DEFAULT '',
			update_authority TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			image            TEXT NOT NULL DEFAULT '',
			looked_up_at     BIGINT NOT NULL,
			PRIMARY KEY (owner, mint)
		)
	`)
	require.NoError(t, err)
}
