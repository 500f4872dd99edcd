package sqlite_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/phrazzld/scry-fsrs/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHarness(t *testing.T) *storetest.Harness {
	t.Helper()

	db := openMemory(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &storetest.Harness{
		DB: db,
		Cards: func(contentType domain.ContentType) store.MemoryCardStore {
			return sqlite.NewSQLiteMemoryCardStore(db, contentType, logger)
		},
		Logs: sqlite.NewSQLiteReviewLogStore(db, logger),
	}
}

func TestSQLiteStores(t *testing.T) {
	storetest.Run(t, newHarness)
}

func TestOpen_FileDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scry.db")

	db, err := sqlite.Open(ctx, path)
	require.NoError(t, err)

	cards := sqlite.NewSQLiteMemoryCardStore(db, domain.ContentTypeErrorEntry, nil)
	card := storetest.ReviewedCard(domain.ContentTypeErrorEntry)
	require.NoError(t, cards.Create(ctx, card))
	require.NoError(t, db.Close())

	// Reopening keeps the data and tolerates the existing schema.
	db, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var journal string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	loaded, err := sqlite.NewSQLiteMemoryCardStore(db, domain.ContentTypeErrorEntry, nil).
		Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)
	assert.Equal(t, card, loaded)
}

func TestMapError_ConstraintViolations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openMemory(t)
	card := storetest.ReviewedCard(domain.ContentTypeFlashcard)
	require.NoError(t, sqlite.NewSQLiteMemoryCardStore(db, domain.ContentTypeFlashcard, nil).Create(ctx, card))

	testCases := []struct {
		name     string
		query    string
		args     []any
		expected error
	}{
		{
			name: "unique",
			query: `INSERT INTO memory_cards (id, user_id, content_id, content_type, stability, difficulty,
				state, due, created_at, updated_at)
				SELECT 'other', user_id, content_id, content_type, stability, difficulty,
				state, due, created_at, updated_at FROM memory_cards`,
			expected: store.ErrDuplicate,
		},
		{
			name:     "check",
			query:    `UPDATE memory_cards SET difficulty = 11`,
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "not null",
			query:    `UPDATE memory_cards SET due = NULL`,
			expected: store.ErrInvalidEntity,
		},
		{
			name: "foreign key",
			query: `INSERT INTO review_logs (id, card_id, user_id, grade, state, due, stability, difficulty,
				elapsed_days, last_elapsed_days, scheduled_days, reviewed_at)
				VALUES ('log', 'missing', 'user', 3, 'review', 'x', 1, 1, 0, 0, 1, 'x')`,
			expected: store.ErrInvalidEntity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.ExecContext(ctx, tc.query, tc.args...)
			require.Error(t, err)
			mapped := sqlite.MapError(err)
			assert.ErrorIs(t, mapped, tc.expected)
			assert.Contains(t, mapped.Error(), err.Error())
		})
	}

	assert.NoError(t, sqlite.MapError(nil))
	assert.ErrorIs(t, sqlite.MapError(sql.ErrNoRows), store.ErrNotFound)
	assert.Equal(t, assert.AnError, sqlite.MapError(assert.AnError))
}
