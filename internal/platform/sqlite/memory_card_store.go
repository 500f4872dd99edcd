package sqlite

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

// SQLiteMemoryCardStore implements store.MemoryCardStore on SQLite.
// Each instance is bound to a single content type.
type SQLiteMemoryCardStore struct {
	db          store.DBTX
	contentType domain.ContentType
	logger      *slog.Logger
}

// NewSQLiteMemoryCardStore creates a SQLite MemoryCardStore for cards of contentType.
// If logger is nil, a default logger will be used.
func NewSQLiteMemoryCardStore(
	db store.DBTX,
	contentType domain.ContentType,
	logger *slog.Logger,
) *SQLiteMemoryCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteMemoryCardStore{
		db:          db,
		contentType: contentType,
		logger: logger.With(
			slog.String("component", "memory_card_store"),
			slog.String("content_type", string(contentType)),
		),
	}
}

var _ store.MemoryCardStore = (*SQLiteMemoryCardStore)(nil)

func (s *SQLiteMemoryCardStore) validate(card *domain.MemoryCard) error {
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
func (s *SQLiteMemoryCardStore) Create(ctx context.Context, card *domain.MemoryCard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validate(card); err != nil {
		log.Warn("memory card validation failed during create", slog.String("error", err.Error()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_cards (`+memoryCardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		card.ID.String(),
		card.UserID.String(),
		card.ContentID.String(),
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
		formatTime(card.Due),
		formatNullTime(card.LastReview),
		formatTime(card.CreatedAt),
		formatTime(card.UpdatedAt),
	)
	if err != nil {
		err = MapError(err)
		if store.IsDuplicateError(err) {
			log.Debug("memory card already exists",
				slog.String("user_id", card.UserID.String()),
				slog.String("content_id", card.ContentID.String()))
			return fmt.Errorf("%w: %v", store.ErrMemoryCardExists, err)
		}
		log.Error("failed to create memory card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	card.Version = 1
	log.Debug("memory card created", slog.String("card_id", card.ID.String()))
	return nil
}

// Get implements store.MemoryCardStore.Get
func (s *SQLiteMemoryCardStore) Get(ctx context.Context, userID, contentID uuid.UUID) (*domain.MemoryCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `
		SELECT `+memoryCardColumns+`
		FROM memory_cards
		WHERE content_type = ? AND user_id = ? AND content_id = ?`,
		string(s.contentType), userID.String(), contentID.String())

	card, err := scanMemoryCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// GetForUpdate implements store.MemoryCardStore.GetForUpdate
// SQLite has no row locks; transactions opened on a database from Open begin
// IMMEDIATE and already hold the write lock.
func (s *SQLiteMemoryCardStore) GetForUpdate(
	ctx context.Context,
	userID, contentID uuid.UUID,
) (*domain.MemoryCard, error) {
	return s.Get(ctx, userID, contentID)
}

// Update implements store.MemoryCardStore.Update
func (s *SQLiteMemoryCardStore) Update(ctx context.Context, card *domain.MemoryCard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validate(card); err != nil {
		log.Warn("memory card validation failed during update", slog.String("error", err.Error()))
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_cards
		SET deck_id = ?, deck_name = ?,
			stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?,
			reps = ?, lapses = ?, state = ?, due = ?, last_review = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND content_type = ? AND version = ?`,
		nullUUID(card.DeckID),
		nullString(card.DeckName),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		string(card.State),
		formatTime(card.Due),
		formatNullTime(card.LastReview),
		formatTime(card.UpdatedAt),
		card.ID.String(),
		string(s.contentType),
		card.Version,
	)
	if err != nil {
		log.Error("failed to update memory card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		return s.explainMissedUpdate(ctx, log, card)
	}

	card.Version++
	log.Debug("memory card updated",
		slog.String("card_id", card.ID.String()),
		slog.Int64("version", card.Version))
	return nil
}

func (s *SQLiteMemoryCardStore) explainMissedUpdate(
	ctx context.Context,
	log *slog.Logger,
	card *domain.MemoryCard,
) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM memory_cards WHERE id = ? AND content_type = ?)`,
		card.ID.String(), string(s.contentType),
	).Scan(&exists)
	if err != nil {
		return MapError(err)
	}

	if !exists {
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
func (s *SQLiteMemoryCardStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.MemoryCard, error) {
	query := `
		SELECT ` + memoryCardColumns + `
		FROM memory_cards
		WHERE content_type = ? AND user_id = ? AND due <= ?
		ORDER BY due ASC, id ASC`
	args := []any{string(s.contentType), userID.String(), formatTime(now)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list due memory cards",
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
	return cards, nil
}

// CountDue implements store.MemoryCardStore.CountDue
func (s *SQLiteMemoryCardStore) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_cards WHERE content_type = ? AND user_id = ? AND due <= ?`,
		string(s.contentType), userID.String(), formatTime(now),
	).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// Delete implements store.MemoryCardStore.Delete
func (s *SQLiteMemoryCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_cards WHERE id = ? AND content_type = ?`,
		id.String(), string(s.contentType))
	if err != nil {
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		return store.ErrMemoryCardNotFound
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("memory card deleted", slog.String("card_id", id.String()))
	return nil
}

// WithTx implements store.MemoryCardStore.WithTx
func (s *SQLiteMemoryCardStore) WithTx(tx *sql.Tx) store.MemoryCardStore {
	return &SQLiteMemoryCardStore{
		db:          tx,
		contentType: s.contentType,
		logger:      s.logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemoryCard(row rowScanner) (*domain.MemoryCard, error) {
	var (
		card                    domain.MemoryCard
		contentType, state      string
		deckID                  uuid.NullUUID
		deckName, lastReview    sql.NullString
		due, createdAt, updated string
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
		&due,
		&lastReview,
		&card.Version,
		&createdAt,
		&updated,
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

	if card.Due, err = parseTime(due); err != nil {
		return nil, err
	}
	if card.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if card.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if lastReview.Valid {
		lr, err := parseTime(lastReview.String)
		if err != nil {
			return nil, err
		}
		card.LastReview = &lr
	}

	return &card, nil
}

func nullUUID(id uuid.UUID) sql.NullString {
	return sql.NullString{String: id.String(), Valid: id != uuid.Nil}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
