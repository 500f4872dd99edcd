package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// ReviewLogStore defines the interface for the append-only review history.
type ReviewLogStore interface {
	// Create appends an entry.
	// Returns ErrDuplicate if an entry with the same ID exists.
	Create(ctx context.Context, entry *domain.ReviewLogEntry) error

	// ListByCard returns every entry of a card ordered by reviewed_at ascending.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ReviewLogEntry, error)

	// ListByUser returns the entries of userID reviewed at or after since,
	// ordered by reviewed_at ascending. A zero since returns the full history.
	ListByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]*domain.ReviewLogEntry, error)

	// WithTx returns a new ReviewLogStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
