package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// ReviewRequest is a single graded review of one piece of content.
type ReviewRequest struct {
	ContentType domain.ContentType `json:"content_type"`
	UserID      uuid.UUID          `json:"user_id"`
	ContentID   uuid.UUID          `json:"content_id"`
	// DeckID is recorded when the review creates the card and ignored afterwards.
	DeckID uuid.UUID    `json:"deck_id,omitempty"`
	Grade  domain.Grade `json:"grade"`
	// ReviewTimeMs is how long the learner took to answer, when measured.
	ReviewTimeMs *int64 `json:"review_time_ms,omitempty"`
}

// ReviewResult is the committed outcome of a review.
type ReviewResult struct {
	Card *domain.MemoryCard     `json:"card"`
	Log  *domain.ReviewLogEntry `json:"log"`
}

// Service orchestrates scheduling and persistence of reviews for every content type.
type Service interface {
	// PreviewCard returns the outcome of each grade for the card without persisting
	// anything. A card that does not exist yet is previewed as a fresh NEW card.
	PreviewCard(
		ctx context.Context,
		contentType domain.ContentType,
		userID, contentID uuid.UUID,
	) (*srs.SchedulingOptions, error)

	// ReviewCard applies a grade and persists the card together with its log entry.
	//
	// The card is created on its first review. Reviews of the same card are
	// serialized; if a conflicting write still slips through, the review is
	// rejected with ErrConcurrentReview and nothing is persisted.
	ReviewCard(ctx context.Context, req ReviewRequest) (*ReviewResult, error)

	// GetDueCards returns up to limit cards due now, most overdue first.
	// A non-positive limit returns every due card.
	GetDueCards(
		ctx context.Context,
		contentType domain.ContentType,
		userID uuid.UUID,
		limit int,
	) ([]*domain.MemoryCard, error)

	// CountDueCards returns how many cards are due now.
	CountDueCards(ctx context.Context, contentType domain.ContentType, userID uuid.UUID) (int, error)

	// ImportLegacyCard creates a card from the older interval/ease-factor model.
	// Returns ErrCardExists if the user already has a card for the content.
	ImportLegacyCard(
		ctx context.Context,
		contentType domain.ContentType,
		userID, contentID, deckID uuid.UUID,
		legacy domain.LegacyIntervalModel,
	) (*domain.MemoryCard, error)

	// GetReviewHistory returns the log entries of a card, oldest first.
	GetReviewHistory(
		ctx context.Context,
		contentType domain.ContentType,
		userID, contentID uuid.UUID,
	) ([]*domain.ReviewLogEntry, error)

	// OptimizeParameters fits scheduler parameters to the user's full review history.
	OptimizeParameters(ctx context.Context, userID uuid.UUID) (srs.Params, error)
}

// Clock returns the current instant.
type Clock func() time.Time
