package events

import (
	"time"

	"github.com/google/uuid"
)

// ReviewRecorded is the payload of a TypeReviewRecorded event.
type ReviewRecorded struct {
	CardID        uuid.UUID `json:"card_id"`
	UserID        uuid.UUID `json:"user_id"`
	ContentID     uuid.UUID `json:"content_id"`
	ContentType   string    `json:"content_type"`
	Grade         string    `json:"grade"`
	PreviousState string    `json:"previous_state"`
	State         string    `json:"state"`
	Stability     float64   `json:"stability"`
	Difficulty    float64   `json:"difficulty"`
	ScheduledDays int       `json:"scheduled_days"`
	Lapsed        bool      `json:"lapsed"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

// ReviewFailed is the payload of a TypeReviewFailed event.
type ReviewFailed struct {
	Operation   string `json:"operation"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error"`
}
