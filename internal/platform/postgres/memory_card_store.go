package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

const memoryCardColumns = `
	id, user_id, content_id, content_type, deck_id, deck_name,
	stability, difficulty, elapsed_days, scheduled_days, reps, lapses,
	state, due, last_review, version, created_at, updated_at`

// PostgresMemoryCardStore implements the store.MemoryCardStore interface
// using a PostgreSQL database as the storage backend.
// Each instance is bound to a single content type.
type PostgresMemoryCardStore struct {
	db          store.DBTX
	contentType domain.ContentType
	logger      *slog.Logger
}

// NewPostgresMemoryCardStore creates a new PostgreSQL implementation of the MemoryCardStore interface
// for cards of contentType.
// If logger is nil, a default logger will be used.
func NewPostgresMemoryCardStore(
	db store.DBTX,
	contentType domain.ContentType,
	logger *slog.Logger,
) *PostgresMemoryCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMemoryCardStore{
		db:          db,
		contentType: contentType,
		logger: logger.With(
			slog.String("component", "memory_card_store"),
			slog.String("content_type", string(contentType)),
		),
	}
}

// Ensure PostgresMemoryCardStore implements store.MemoryCardStore interface
var _ store.MemoryCardStore = (*PostgresMemoryCardStore)(nil)

// validate rejects invalid cards and cards of another content type.
func (s *PostgresMemoryCardStore) validate(card *domain.MemoryCard) error {
	if card == nil {
		return fmt.Errorf("%w: memory card cannot be nil", store.ErrInvalidEntity)
	}
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if card.ContentType != s.contentType {
		return fmt.Errorf("%w: card content type %q does not match store content type %q",
			store.ErrInvalidEntity, card.ContentType, s.contentType)
	}
	return nil
}

// Create implements store.MemoryCardStore.Create
func (s *PostgresMemoryCardStore) Create(ctx context.Context, card *domain.MemoryCard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validate(card); err != nil {
		log.Warn("memory card validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO memory_cards (` + memoryCardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17)
	`
	_, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.UserID,
		card.ContentID,
		string(card.ContentType),
		nullUUID(card.DeckID),
		nullString(card.DeckName),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		string(card.State),
		card.Due.UTC(),
		nullTime(card.LastReview),
		card.CreatedAt.UTC(),
		card.UpdatedAt.UTC(),
	)
	if err != nil {
		err = MapUniqueViolation(err, store.ErrMemoryCardExists)
		if store.IsDuplicateError(err) {
			log.Debug("memory card already exists",
				slog.String("user_id", card.UserID.String()),
				slog.String("content_id", card.ContentID.String()))
			return err
		}
		log.Error("failed to create memory card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	card.Version = 1
	log.Debug("memory card created",
		slog.String("card_id", card.ID.String()),
		slog.String("user_id", card.UserID.String()))
	return nil
}

// Get implements store.MemoryCardStore.Get
func (s *PostgresMemoryCardStore) Get(ctx context.Context, userID, contentID uuid.UUID) (*domain.MemoryCard, error) {
	return s.get(ctx, userID, contentID, false)
}

// GetForUpdate implements store.MemoryCardStore.GetForUpdate
// The row stays locked until the transaction bound with WithTx ends.
func (s *PostgresMemoryCardStore) GetForUpdate(
	ctx context.Context,
	userID, contentID uuid.UUID,
) (*domain.MemoryCard, error) {
	return s.get(ctx, userID, contentID, true)
}

func (s *PostgresMemoryCardStore) get(
	ctx context.Context,
	userID, contentID uuid.UUID,
	forUpdate bool,
) (*domain.MemoryCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + memoryCardColumns + `
		FROM memory_cards
		WHERE content_type = $1 AND user_id = $2 AND content_id = $3
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	card, err := scanMemoryCard(s.db.QueryRowContext(ctx, query, string(s.contentType), userID, contentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("memory card not found",
				slog.String("user_id", userID.String()),
				slog.String("content_id", contentID.String()))
			return nil, store.ErrMemoryCardNotFound
		}
		log.Error("failed to get memory card",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("content_id", contentID.String()))
		return nil, MapError(err)
	}

	return card, nil
}

// Update implements store.MemoryCardStore.Update
func (s *PostgresMemoryCardStore) Update(ctx context.Context, card *domain.MemoryCard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validate(card); err != nil {
		log.Warn("memory card validation failed during update",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		UPDATE memory_cards
		SET deck_id = $1, deck_name = $2,
			stability = $3, difficulty = $4, elapsed_days = $5, scheduled_days = $6,
			reps = $7, lapses = $8, state = $9, due = $10, last_review = $11,
			updated_at = $12, version = version + 1
		WHERE id = $13 AND content_type = $14 AND version = $15
	`
	result, err := s.db.ExecContext(ctx, query,
		nullUUID(card.DeckID),
		nullString(card.DeckName),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		string(card.State),
		card.Due.UTC(),
		nullTime(card.LastReview),
		card.UpdatedAt.UTC(),
		card.ID,
		string(s.contentType),
		card.Version,
	)
	if err != nil {
		log.Error("failed to update memory card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrVersionConflict); err != nil {
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return s.explainMissedUpdate(ctx, log, card)
	}

	card.Version++
	log.Debug("memory card updated",
		slog.String("card_id", card.ID.String()),
		slog.Int64("version", card.Version))
	return nil
}

// explainMissedUpdate distinguishes a deleted card from a stale version after an
// update matched no rows.
func (s *PostgresMemoryCardStore) explainMissedUpdate(
	ctx context.Context,
	log *slog.Logger,
	card *domain.MemoryCard,
) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM memory_cards WHERE id = $1 AND content_type = $2)`,
		card.ID, string(s.contentType),
	).Scan(&exists)
	if err != nil {
		return MapError(err)
	}

	if !exists {
		log.Debug("memory card not found during update", slog.String("card_id", card.ID.String()))
		return store.ErrMemoryCardNotFound
	}

	log.Warn("memory card version conflict",
		slog.String("card_id", card.ID.String()),
		slog.Int64("expected_version", card.Version))
	return store.NewStoreError("memory_card", "update",
		fmt.Sprintf("card %s is no longer at version %d", card.ID, card.Version),
		store.ErrVersionConflict)
}

// ListDue implements store.MemoryCardStore.ListDue
func (s *PostgresMemoryCardStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.MemoryCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + memoryCardColumns + `
		FROM memory_cards
		WHERE content_type = $1 AND user_id = $2 AND due <= $3
		ORDER BY due ASC, id ASC
	`
	args := []any{string(s.contentType), userID, now.UTC()}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list due memory cards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*domain.MemoryCard, 0)
	for rows.Next() {
		card, err := scanMemoryCard(rows)
		if err != nil {
			return nil, MapError(err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("listed due memory cards",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(cards)))
	return cards, nil
}

// CountDue implements store.MemoryCardStore.CountDue
func (s *PostgresMemoryCardStore) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_cards WHERE content_type = $1 AND user_id = $2 AND due <= $3`,
		string(s.contentType), userID, now.UTC(),
	).Scan(&count)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count due memory cards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}
	return count, nil
}

// Delete implements store.MemoryCardStore.Delete
// Review logs of the card are removed by the ON DELETE CASCADE constraint.
func (s *PostgresMemoryCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_cards WHERE id = $1 AND content_type = $2`,
		id, string(s.contentType))
	if err != nil {
		log.Error("failed to delete memory card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrMemoryCardNotFound); err != nil {
		return err
	}

	log.Debug("memory card deleted", slog.String("card_id", id.String()))
	return nil
}

// WithTx implements store.MemoryCardStore.WithTx
func (s *PostgresMemoryCardStore) WithTx(tx *sql.Tx) store.MemoryCardStore {
	return &PostgresMemoryCardStore{
		db:          tx,
		contentType: s.contentType,
		logger:      s.logger,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemoryCard(row rowScanner) (*domain.MemoryCard, error) {
	var (
		card        domain.MemoryCard
		contentType string
		state       string
		deckID      uuid.NullUUID
		deckName    sql.NullString
		lastReview  sql.NullTime
	)

	err := row.Scan(
		&card.ID,
		&card.UserID,
		&card.ContentID,
		&contentType,
		&deckID,
		&deckName,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.Reps,
		&card.Lapses,
		&state,
		&card.Due,
		&lastReview,
		&card.Version,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.ContentType = domain.ContentType(contentType)
	card.State = domain.CardState(state)
	if deckID.Valid {
		card.DeckID = deckID.UUID
	}
	card.DeckName = deckName.String
	card.Due = card.Due.UTC()
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	if lastReview.Valid {
		lr := lastReview.Time.UTC()
		card.LastReview = &lr
	}

	return &card, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
