package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// Legacy conversion constants.
const (
	legacyStabilityRatio = 0.8
	legacyMinStability   = 0.1
	legacyMinEaseFactor  = 1.3
	legacyEaseToDiff     = 5.0
)

// ConvertLegacyIntervalModel implements Service.ConvertLegacyIntervalModel.
//
// The interval becomes stability (80% of it, at least 0.1 days) and the ease factor
// becomes difficulty, with the minimum legacy ease of 1.3 mapping to the hardest value.
// Cards that were never repeated stay NEW; everything else enters REVIEW and keeps
// its legacy interval, repetitions and lapses. A REVIEW card always has a last
// review: the legacy one when known, the import instant otherwise.
func (s *defaultService) ConvertLegacyIntervalModel(
	userID, contentID, deckID uuid.UUID,
	contentType domain.ContentType,
	legacy domain.LegacyIntervalModel,
	now time.Time,
) (*domain.MemoryCard, error) {
	if err := legacy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLegacyModel, err)
	}

	card, err := s.NewCard(userID, contentID, deckID, contentType, now)
	if err != nil {
		return nil, err
	}

	card.Stability = math.Max(float64(legacy.Interval)*legacyStabilityRatio, legacyMinStability)
	card.Difficulty = clampDifficulty(domain.MaxDifficulty - (legacy.EaseFactor-legacyMinEaseFactor)*legacyEaseToDiff)
	card.Lapses = legacy.Lapses

	if legacy.Repetitions > 0 {
		card.State = domain.CardStateReview
		card.Reps = legacy.Repetitions
		card.ScheduledDays = clampInterval(float64(legacy.Interval), s.params.MaximumIntervalDays)
		// The import stands in for a missing last review.
		last := card.CreatedAt
		if legacy.LastReviewedAt != nil {
			last = legacy.LastReviewedAt.UTC()
		}
		card.LastReview = &last
		card.Due = last.AddDate(0, 0, card.ScheduledDays)
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}
