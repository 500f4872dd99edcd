package postgres

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

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the ReviewLogStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore interface
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// Create implements store.ReviewLogStore.Create
// Returns store.ErrInvalidEntity if the card does not exist (foreign key violation).
func (s *PostgresReviewLogStore) Create(ctx context.Context, entry *domain.ReviewLogEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if entry == nil {
		return fmt.Errorf("%w: review log entry cannot be nil", store.ErrInvalidEntity)
	}
	if err := entry.Validate(); err != nil {
		log.Warn("review log validation failed during create",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_logs (` + reviewLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.CardID,
		entry.UserID,
		int(entry.Grade),
		string(entry.State),
		entry.Due.UTC(),
		entry.Stability,
		entry.Difficulty,
		entry.ElapsedDays,
		entry.LastElapsedDays,
		entry.ScheduledDays,
		nullInt64(entry.ReviewTimeMs),
		entry.ReviewedAt.UTC(),
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
		slog.String("card_id", entry.CardID.String()),
		slog.String("grade", entry.Grade.String()))
	return nil
}

// ListByCard implements store.ReviewLogStore.ListByCard
func (s *PostgresReviewLogStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLogEntry, error) {
	query := `
		SELECT ` + reviewLogColumns + `
		FROM review_logs
		WHERE card_id = $1
		ORDER BY reviewed_at ASC, id ASC
	`
	return s.list(ctx, query, cardID)
}

// ListByUser implements store.ReviewLogStore.ListByUser
func (s *PostgresReviewLogStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) ([]*domain.ReviewLogEntry, error) {
	query := `
		SELECT ` + reviewLogColumns + `
		FROM review_logs
		WHERE user_id = $1 AND reviewed_at >= $2
		ORDER BY reviewed_at ASC, id ASC
	`
	return s.list(ctx, query, userID, since.UTC())
}

func (s *PostgresReviewLogStore) list(ctx context.Context, query string, args ...any) ([]*domain.ReviewLogEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list review logs", slog.String("error", err.Error()))
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
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanReviewLog(row rowScanner) (*domain.ReviewLogEntry, error) {
	var (
		entry        domain.ReviewLogEntry
		grade        int
		state        string
		reviewTimeMs sql.NullInt64
	)

	err := row.Scan(
		&entry.ID,
		&entry.CardID,
		&entry.UserID,
		&grade,
		&state,
		&entry.Due,
		&entry.Stability,
		&entry.Difficulty,
		&entry.ElapsedDays,
		&entry.LastElapsedDays,
		&entry.ScheduledDays,
		&reviewTimeMs,
		&entry.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Grade = domain.Grade(grade)
	entry.State = domain.CardState(state)
	entry.Due = entry.Due.UTC()
	entry.ReviewedAt = entry.ReviewedAt.UTC()
	if reviewTimeMs.Valid {
		ms := reviewTimeMs.Int64
		entry.ReviewTimeMs = &ms
	}

	return &entry, nil
}
