package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/platform/postgres"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/phrazzld/scry-fsrs/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// testDatabaseURLEnv names the variable that enables the integration tests.
const testDatabaseURLEnv = "SCRY_TEST_DATABASE_URL"

func newHarness(t *testing.T) *storetest.Harness {
	t.Helper()

	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set; skipping PostgreSQL integration tests", testDatabaseURLEnv)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, postgres.Migrate(ctx, db, postgres.MigrateUp, logger))

	return &storetest.Harness{
		DB: db,
		Cards: func(contentType domain.ContentType) store.MemoryCardStore {
			return postgres.NewPostgresMemoryCardStore(db, contentType, logger)
		},
		Logs: postgres.NewPostgresReviewLogStore(db, logger),
	}
}

func TestPostgresStores(t *testing.T) {
	storetest.Run(t, newHarness)
}

func TestMigrate_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, postgres.Migrate(ctx, h.DB, postgres.MigrateUp, nil))
	require.NoError(t, postgres.Migrate(ctx, h.DB, postgres.MigrateVersion, nil))
	require.Error(t, postgres.Migrate(ctx, h.DB, postgres.MigrationCommand("sideways"), nil))
}
