package domain

import (
	"errors"
	"math"
	"time"
)

// Common validation errors for LegacyIntervalModel
var (
	ErrInvalidLegacyInterval    = errors.New("legacy interval must be greater than or equal to 0")
	ErrInvalidLegacyEaseFactor  = errors.New("legacy ease factor must be a positive number")
	ErrInvalidLegacyRepetitions = errors.New("legacy repetitions must be greater than or equal to 0")
	ErrInvalidLegacyLapses      = errors.New("legacy lapses must be greater than or equal to 0")
)

// LegacyIntervalModel is the review state kept by the older exponential-backoff
// (SM-2 style) scheduler. It is only read once, when a card is imported into the
// memory model.
type LegacyIntervalModel struct {
	Interval       int        `json:"interval"`    // Current interval in days
	EaseFactor     float64    `json:"ease_factor"` // Ease factor (1.3-2.5 typically)
	Repetitions    int        `json:"repetitions"` // Count of successful repetitions
	Lapses         int        `json:"lapses"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

// Validate checks if the LegacyIntervalModel has valid data.
// Returns an error if any field fails validation.
func (m *LegacyIntervalModel) Validate() error {
	if m.Interval < 0 {
		return ErrInvalidLegacyInterval
	}

	if m.EaseFactor <= 0 || math.IsNaN(m.EaseFactor) || math.IsInf(m.EaseFactor, 0) {
		return ErrInvalidLegacyEaseFactor
	}

	if m.Repetitions < 0 {
		return ErrInvalidLegacyRepetitions
	}

	if m.Lapses < 0 {
		return ErrInvalidLegacyLapses
	}

	return nil
}
