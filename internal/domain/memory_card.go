package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Bounds shared by every memory state computation.
const (
	MinStability  = 0.01
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
)

// MemoryCard validation errors
var (
	ErrEmptyMemoryCardID        = errors.New("memory card ID cannot be empty")
	ErrEmptyMemoryCardUserID    = errors.New("memory card user ID cannot be empty")
	ErrEmptyMemoryCardContentID = errors.New("memory card content ID cannot be empty")
	ErrInvalidStability         = errors.New("stability must be at least 0.01")
	ErrInvalidDifficulty        = errors.New("difficulty must be between 1 and 10")
	ErrInvalidScheduledDays     = errors.New("scheduled days must be at least 1 once reviewed")
	ErrInvalidElapsedDays       = errors.New("elapsed days cannot be negative")
	ErrInvalidCounters          = errors.New("reps and lapses cannot be negative")
	ErrNewCardInconsistent      = errors.New("new cards must have zero reps and no last review")
)

// MemoryCard is a user's memory state for one piece of content.
// One card exists per (user, content) pair and per content type.
type MemoryCard struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	ContentID   uuid.UUID   `json:"content_id"`
	ContentType ContentType `json:"content_type"`
	DeckID      uuid.UUID   `json:"deck_id"`
	DeckName    string      `json:"deck_name,omitempty"` // display only, filled lazily

	Stability     float64 `json:"stability"`      // days
	Difficulty    float64 `json:"difficulty"`     // [1, 10]
	ElapsedDays   float64 `json:"elapsed_days"`   // days since last review at the time it was taken
	ScheduledDays int     `json:"scheduled_days"` // interval chosen at the last review
	Reps          int     `json:"reps"`
	Lapses        int     `json:"lapses"`

	State      CardState  `json:"state"`
	Due        time.Time  `json:"due"`
	LastReview *time.Time `json:"last_review,omitempty"`

	// Version is the optimistic concurrency counter maintained by the store.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMemoryCard creates a card in the NEW state that is due immediately.
// seed is used for both the initial stability and the initial difficulty.
func NewMemoryCard(
	id, userID, contentID uuid.UUID,
	contentType ContentType,
	seed float64,
	now time.Time,
) (*MemoryCard, error) {
	now = now.UTC()
	card := &MemoryCard{
		ID:          id,
		UserID:      userID,
		ContentID:   contentID,
		ContentType: contentType,
		Stability:   seed,
		Difficulty:  seed,
		State:       CardStateNew,
		Due:         now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// IsNew reports whether the card has never been reviewed.
func (c *MemoryCard) IsNew() bool {
	return c.State == CardStateNew
}

// ElapsedDaysAt returns the fractional number of days between the last review and now.
// It is 0 for cards that were never reviewed or when now precedes the last review.
func (c *MemoryCard) ElapsedDaysAt(now time.Time) float64 {
	if c.LastReview == nil {
		return 0
	}
	days := now.Sub(*c.LastReview).Hours() / 24
	if days < 0 || math.IsNaN(days) {
		return 0
	}
	return days
}

// Clone returns a deep copy of the card.
func (c *MemoryCard) Clone() *MemoryCard {
	out := *c
	if c.LastReview != nil {
		lr := *c.LastReview
		out.LastReview = &lr
	}
	return &out
}

// Validate checks the card's identity and memory-state invariants.
func (c *MemoryCard) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyMemoryCardID
	}

	if c.UserID == uuid.Nil {
		return ErrEmptyMemoryCardUserID
	}

	if c.ContentID == uuid.Nil {
		return ErrEmptyMemoryCardContentID
	}

	if !c.ContentType.IsValid() {
		return ErrInvalidContentType
	}

	if !c.State.IsValid() {
		return ErrInvalidCardState
	}

	if math.IsNaN(c.Stability) || c.Stability < MinStability {
		return ErrInvalidStability
	}

	if math.IsNaN(c.Difficulty) || c.Difficulty < MinDifficulty || c.Difficulty > MaxDifficulty {
		return ErrInvalidDifficulty
	}

	if c.ElapsedDays < 0 {
		return ErrInvalidElapsedDays
	}

	if c.Reps < 0 || c.Lapses < 0 {
		return ErrInvalidCounters
	}

	neverReviewed := c.Reps == 0 && c.LastReview == nil
	if c.IsNew() != neverReviewed {
		return ErrNewCardInconsistent
	}

	if !c.IsNew() && c.ScheduledDays < 1 {
		return ErrInvalidScheduledDays
	}

	return nil
}
