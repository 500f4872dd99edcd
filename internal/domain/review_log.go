package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewLogEntry validation errors
var (
	ErrEmptyReviewLogID     = errors.New("review log ID cannot be empty")
	ErrEmptyReviewLogCardID = errors.New("review log card ID cannot be empty")
	ErrEmptyReviewLogUserID = errors.New("review log user ID cannot be empty")
	ErrInvalidReviewTime    = errors.New("review time cannot be negative")
)

// ReviewLogEntry is the immutable record of one grading event.
// It captures the memory state the card ended up in after the grade was applied.
type ReviewLogEntry struct {
	ID              uuid.UUID `json:"id"`
	CardID          uuid.UUID `json:"card_id"`
	UserID          uuid.UUID `json:"user_id"`
	Grade           Grade     `json:"grade"`
	State           CardState `json:"state"`
	Due             time.Time `json:"due"`
	Stability       float64   `json:"stability"`
	Difficulty      float64   `json:"difficulty"`
	ElapsedDays     float64   `json:"elapsed_days"`
	LastElapsedDays float64   `json:"last_elapsed_days"` // the card's elapsed days before this review
	ScheduledDays   int       `json:"scheduled_days"`
	ReviewTimeMs    *int64    `json:"review_time_ms,omitempty"`
	ReviewedAt      time.Time `json:"reviewed_at"`
}

// Validate checks that the entry is complete enough to be persisted.
func (e *ReviewLogEntry) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyReviewLogID
	}

	if e.CardID == uuid.Nil {
		return ErrEmptyReviewLogCardID
	}

	if e.UserID == uuid.Nil {
		return ErrEmptyReviewLogUserID
	}

	if !e.Grade.IsValid() {
		return ErrInvalidGrade
	}

	if !e.State.IsValid() {
		return ErrInvalidCardState
	}

	if e.ReviewTimeMs != nil && *e.ReviewTimeMs < 0 {
		return ErrInvalidReviewTime
	}

	return nil
}
