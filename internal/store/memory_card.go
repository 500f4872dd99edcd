package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// MemoryCardStore defines the interface for memory card persistence.
// A store instance holds the cards of a single content type; the orchestrator
// keeps one instance per content type.
//
// Writes follow an at-most-one-writer-per-card contract: Update only succeeds when
// the stored version equals card.Version, so two reviews racing on the same
// snapshot cannot both commit.
type MemoryCardStore interface {
	// Create saves a new card. The card's Version is set to 1.
	// Returns ErrMemoryCardExists if a card for the same (user, content) pair exists.
	// Returns domain validation errors wrapped in ErrInvalidEntity if the card is invalid.
	Create(ctx context.Context, card *domain.MemoryCard) error

	// Get retrieves the card for a (user, content) pair.
	// Returns ErrMemoryCardNotFound if the card does not exist.
	Get(ctx context.Context, userID, contentID uuid.UUID) (*domain.MemoryCard, error)

	// GetForUpdate is Get with a row lock held until the surrounding transaction ends,
	// where the backend supports it. It must be called on a store bound with WithTx.
	GetForUpdate(ctx context.Context, userID, contentID uuid.UUID) (*domain.MemoryCard, error)

	// Update persists card if the stored version equals card.Version and increments
	// card.Version on success.
	// Returns ErrMemoryCardNotFound if the card does not exist and ErrVersionConflict
	// if it was modified since it was read.
	Update(ctx context.Context, card *domain.MemoryCard) error

	// ListDue returns up to limit cards of userID whose due instant is at or before now,
	// ordered by due ascending. A non-positive limit returns every due card.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.MemoryCard, error)

	// CountDue returns the number of cards of userID due at or before now.
	CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// Delete removes a card by its ID.
	// Returns ErrMemoryCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new MemoryCardStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MemoryCardStore
}
