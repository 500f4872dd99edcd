package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// schema mirrors the PostgreSQL migrations. Instants are stored as fixed-width
// UTC text so that lexical order equals chronological order.
const schema = `
CREATE TABLE IF NOT EXISTS memory_cards (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	content_id      TEXT NOT NULL,
	content_type    TEXT NOT NULL CHECK (content_type IN ('flashcard', 'exam_question', 'error_entry')),
	deck_id         TEXT,
	deck_name       TEXT,
	stability       REAL NOT NULL CHECK (stability >= 0.01),
	difficulty      REAL NOT NULL CHECK (difficulty >= 1 AND difficulty <= 10),
	elapsed_days    REAL NOT NULL DEFAULT 0 CHECK (elapsed_days >= 0),
	scheduled_days  INTEGER NOT NULL DEFAULT 0 CHECK (scheduled_days >= 0),
	reps            INTEGER NOT NULL DEFAULT 0 CHECK (reps >= 0),
	lapses          INTEGER NOT NULL DEFAULT 0 CHECK (lapses >= 0),
	state           TEXT NOT NULL CHECK (state IN ('new', 'learning', 'review', 'relearning')),
	due             TEXT NOT NULL,
	last_review     TEXT,
	version         INTEGER NOT NULL DEFAULT 1,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	UNIQUE (content_type, user_id, content_id)
);

CREATE INDEX IF NOT EXISTS idx_memory_cards_due ON memory_cards (content_type, user_id, due);

CREATE TABLE IF NOT EXISTS review_logs (
	id                 TEXT PRIMARY KEY,
	card_id            TEXT NOT NULL REFERENCES memory_cards (id) ON DELETE CASCADE,
	user_id            TEXT NOT NULL,
	grade              INTEGER NOT NULL CHECK (grade BETWEEN 1 AND 4),
	state              TEXT NOT NULL,
	due                TEXT NOT NULL,
	stability          REAL NOT NULL,
	difficulty         REAL NOT NULL,
	elapsed_days       REAL NOT NULL,
	last_elapsed_days  REAL NOT NULL,
	scheduled_days     INTEGER NOT NULL,
	review_time_ms     INTEGER CHECK (review_time_ms >= 0),
	reviewed_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs (card_id, reviewed_at);
CREATE INDEX IF NOT EXISTS idx_review_logs_user ON review_logs (user_id, reviewed_at);
`

// Open opens the SQLite database at path (a file path or MemoryPath) and creates
// the schema if it does not exist.
//
// Foreign keys are enforced and every transaction begins IMMEDIATE, taking the
// database write lock up front; that is what GetForUpdate relies on.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
	}
	inMemory := path == MemoryPath || strings.Contains(path, "mode=memory")
	if !inMemory {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+strings.Join(pragmas, "&"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the database schema if it doesn't exist.
func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
