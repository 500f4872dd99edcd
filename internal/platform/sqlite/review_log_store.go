package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

const reviewLogColumns = `
	id, card_id, user_id, grade, state, due, stability, difficulty,
	elapsed_days, last_elapsed_days, scheduled_days, review_time_ms, reviewed_at`

// SQLiteReviewLogStore implements store.ReviewLogStore on SQLite.
type SQLiteReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteReviewLogStore creates a SQLite ReviewLogStore.
// If logger is nil, a default logger will be used.
func NewSQLiteReviewLogStore(db store.DBTX, logger *slog.Logger) *SQLiteReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*SQLiteReviewLogStore)(nil)

// Create implements store.ReviewLogStore.Create
func (s *SQLiteReviewLogStore) Create(ctx context.Context, entry *domain.ReviewLogEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if entry == nil {
		return fmt.Errorf("%w: review log entry cannot be nil", store.ErrInvalidEntity)
	}
	if err := entry.Validate(); err != nil {
		log.Warn("review log validation failed during create", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var reviewTimeMs sql.NullInt64
	if entry.ReviewTimeMs != nil {
		reviewTimeMs = sql.NullInt64{Int64: *entry.ReviewTimeMs, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_logs (`+reviewLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.CardID.String(),
		entry.UserID.String(),
		int(entry.Grade),
		string(entry.State),
		formatTime(entry.Due),
		entry.Stability,
		entry.Difficulty,
		entry.ElapsedDays,
		entry.LastElapsedDays,
		entry.ScheduledDays,
		reviewTimeMs,
		formatTime(entry.ReviewedAt),
	)
	if err != nil {
		log.Error("failed to create review log",
			slog.String("error", err.Error()),
			slog.String("log_id", entry.ID.String()),
			slog.String("card_id", entry.CardID.String()))
		return MapError(err)
	}

	log.Debug("review log created",
		slog.String("log_id", entry.ID.String()),
		slog.String("grade", entry.Grade.String()))
	return nil
}

// ListByCard implements store.ReviewLogStore.ListByCard
func (s *SQLiteReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLogEntry, error) {
	return s.list(ctx, `
		SELECT `+reviewLogColumns+`
		FROM review_logs
		WHERE card_id = ?
		ORDER BY reviewed_at ASC, id ASC`,
		cardID.String())
}

// ListByUser implements store.ReviewLogStore.ListByUser
func (s *SQLiteReviewLogStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) ([]*domain.ReviewLogEntry, error) {
	return s.list(ctx, `
		SELECT `+reviewLogColumns+`
		FROM review_logs
		WHERE user_id = ? AND reviewed_at >= ?
		ORDER BY reviewed_at ASC, id ASC`,
		userID.String(), formatTime(since))
}

func (s *SQLiteReviewLogStore) list(ctx context.Context, query string, args ...any) ([]*domain.ReviewLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list review logs",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*domain.ReviewLogEntry, 0)
	for rows.Next() {
		entry, err := scanReviewLog(rows)
		if err != nil {
			return nil, MapError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return entries, nil
}

// WithTx implements store.ReviewLogStore.WithTx
func (s *SQLiteReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &SQLiteReviewLogStore{db: tx, logger: s.logger}
}

func scanReviewLog(row rowScanner) (*domain.ReviewLogEntry, error) {
	var (
		entry           domain.ReviewLogEntry
		grade           int
		state           string
		due, reviewedAt string
		reviewTimeMs    sql.NullInt64
	)

	err := row.Scan(
		&entry.ID,
		&entry.CardID,
		&entry.UserID,
		&grade,
		&state,
		&due,
		&entry.Stability,
		&entry.Difficulty,
		&entry.ElapsedDays,
		&entry.LastElapsedDays,
		&entry.ScheduledDays,
		&reviewTimeMs,
		&reviewedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Grade = domain.Grade(grade)
	entry.State = domain.CardState(state)
	if entry.Due, err = parseTime(due); err != nil {
		return nil, err
	}
	if entry.ReviewedAt, err = parseTime(reviewedAt); err != nil {
		return nil, err
	}
	if reviewTimeMs.Valid {
		ms := reviewTimeMs.Int64
		entry.ReviewTimeMs = &ms
	}

	return &entry, nil
}
