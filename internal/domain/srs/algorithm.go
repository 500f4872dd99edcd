package srs

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// Interval shaping constants.
const (
	hardIntervalFactor = 1.2
	easyIntervalFactor = 1.3

	// referenceRetention is the recall probability stability is defined against.
	referenceRetention = 0.9
)

// intervalRule selects how a grade turns memory state into scheduled days.
type intervalRule int

const (
	// intervalRelearn always schedules the next review for tomorrow.
	intervalRelearn intervalRule = iota
	// intervalStretchPrior grows the previous interval by hardIntervalFactor.
	intervalStretchPrior
	// intervalFromStability derives the interval from the new stability and the requested retention.
	intervalFromStability
)

// gradePolicy captures everything that differs between the four grade branches.
// applyGrade is the only place that turns a policy into a new card.
type gradePolicy struct {
	grade domain.Grade

	// forget selects the post-lapse stability formula instead of the success formula.
	forget bool

	// seedWeight is the weight index used as the stability of a NEW card.
	seedWeight int

	// factorWeight is the weight index multiplied into success stability, or -1 for none.
	factorWeight int

	interval           intervalRule
	intervalMultiplier float64

	next func(from domain.CardState) domain.CardState
}

// gradePolicies is indexed by grade.
var gradePolicies = map[domain.Grade]gradePolicy{
	domain.GradeAgain: {
		grade:    domain.GradeAgain,
		forget:   true,
		interval: intervalRelearn,
		next: func(from domain.CardState) domain.CardState {
			if from == domain.CardStateNew {
				return domain.CardStateLearning
			}
			return domain.CardStateRelearning
		},
	},
	domain.GradeHard: {
		grade:              domain.GradeHard,
		seedWeight:         wHardSeed,
		factorWeight:       wHardPenalty,
		interval:           intervalStretchPrior,
		intervalMultiplier: hardIntervalFactor,
		next: func(from domain.CardState) domain.CardState {
			if from == domain.CardStateNew {
				return domain.CardStateLearning
			}
			return from
		},
	},
	domain.GradeGood: {
		grade:              domain.GradeGood,
		seedWeight:         wGoodSeed,
		factorWeight:       -1,
		interval:           intervalFromStability,
		intervalMultiplier: 1,
		next:               toReview,
	},
	domain.GradeEasy: {
		grade:              domain.GradeEasy,
		seedWeight:         wEasySeed,
		factorWeight:       wEasyBonus,
		interval:           intervalFromStability,
		intervalMultiplier: easyIntervalFactor,
		next:               toReview,
	},
}

func toReview(domain.CardState) domain.CardState {
	return domain.CardStateReview
}

// retrievability estimates the probability of recall after elapsedDays
// using the power forgetting curve (1 + t/(9S))^-1.
func retrievability(elapsedDays, stability float64) float64 {
	return 1 / (1 + elapsedDays/(9*floorStability(stability)))
}

// successStability computes the stability after a successful recall.
// factor is the hard penalty or easy bonus (1 for GOOD).
func successStability(stability, difficulty, retention, factor float64, w *[WeightCount]float64) float64 {
	s := floorStability(stability)
	growth := math.Exp(w[wRecallExp]) *
		(11 - difficulty) *
		math.Pow(s, -w[wRecallDecay]) *
		(math.Exp((1-retention)*w[wRecallRetention]) - 1)
	return floorStability(s * (growth + 1) * factor)
}

// forgetStability computes the stability after a lapse.
func forgetStability(stability, difficulty, requestedRetention float64, w *[WeightCount]float64) float64 {
	s := floorStability(stability)
	next := w[wForgetScale] *
		math.Pow(clampDifficulty(difficulty), -w[wForgetDifficulty]) *
		(math.Pow(s+1, w[wForgetStability]) - 1) *
		math.Exp((1-requestedRetention)*w[wForgetRetention])
	return floorStability(next)
}

// successDifficulty moves difficulty away from GOOD, the neutral grade.
func successDifficulty(difficulty float64, grade domain.Grade, w *[WeightCount]float64) float64 {
	return clampDifficulty(difficulty - w[wDifficultyStep]*float64(grade-domain.GradeGood))
}

// failureDifficulty applies the fixed lapse increment.
func failureDifficulty(difficulty float64, w *[WeightCount]float64) float64 {
	return clampDifficulty(difficulty + w[wFailureDifficulty])
}

// floorStability keeps stability at or above domain.MinStability, mapping NaN to the floor.
func floorStability(s float64) float64 {
	if math.IsNaN(s) || s < domain.MinStability {
		return domain.MinStability
	}
	return s
}

// clampDifficulty keeps difficulty in [1, 10], mapping NaN to the hardest value.
func clampDifficulty(d float64) float64 {
	switch {
	case math.IsNaN(d):
		return domain.MaxDifficulty
	case d < domain.MinDifficulty:
		return domain.MinDifficulty
	case d > domain.MaxDifficulty:
		return domain.MaxDifficulty
	default:
		return d
	}
}

// clampInterval rounds days and keeps the result in [1, maxDays].
func clampInterval(days float64, maxDays int) int {
	switch {
	case math.IsNaN(days) || days < 1:
		return 1
	case days > float64(maxDays):
		return maxDays
	}
	return int(math.Round(days))
}

// intervalForStability converts stability into the number of days until recall
// probability decays to the requested retention.
func intervalForStability(stability, requestedRetention float64) float64 {
	return stability * math.Log(requestedRetention) / math.Log(referenceRetention)
}

// applyGrade computes the card and log entry that result from grading card with
// policy at now. The input card is not modified.
func applyGrade(
	card *domain.MemoryCard,
	policy gradePolicy,
	now time.Time,
	params *Params,
	logID uuid.UUID,
) (*domain.MemoryCard, *domain.ReviewLogEntry) {
	w := &params.Weights
	wasNew := card.IsNew()
	elapsed := card.ElapsedDaysAt(now)

	next := card.Clone()

	if policy.forget {
		next.Stability = forgetStability(card.Stability, card.Difficulty, params.RequestedRetention, w)
		next.Difficulty = failureDifficulty(card.Difficulty, w)
		next.Lapses++
	} else {
		if wasNew {
			next.Stability = floorStability(w[policy.seedWeight])
		} else {
			factor := 1.0
			if policy.factorWeight >= 0 {
				factor = w[policy.factorWeight]
			}
			retention := retrievability(elapsed, card.Stability)
			next.Stability = successStability(card.Stability, clampDifficulty(card.Difficulty), retention, factor, w)
		}
		next.Difficulty = successDifficulty(card.Difficulty, policy.grade, w)
		next.Reps++
	}

	switch policy.interval {
	case intervalRelearn:
		next.ScheduledDays = 1
	case intervalStretchPrior:
		if wasNew {
			next.ScheduledDays = 1
		} else {
			next.ScheduledDays = clampInterval(
				math.Round(float64(card.ScheduledDays)*policy.intervalMultiplier),
				params.MaximumIntervalDays,
			)
		}
	case intervalFromStability:
		base := w[wGoodSeed]
		if !wasNew {
			base = intervalForStability(next.Stability, params.RequestedRetention)
		}
		next.ScheduledDays = clampInterval(base*policy.intervalMultiplier, params.MaximumIntervalDays)
	}

	reviewedAt := now
	next.State = policy.next(card.State)
	next.ElapsedDays = elapsed
	next.LastReview = &reviewedAt
	next.Due = now.AddDate(0, 0, next.ScheduledDays)
	next.UpdatedAt = now

	log := &domain.ReviewLogEntry{
		ID:              logID,
		CardID:          card.ID,
		UserID:          card.UserID,
		Grade:           policy.grade,
		State:           next.State,
		Due:             next.Due,
		Stability:       next.Stability,
		Difficulty:      next.Difficulty,
		ElapsedDays:     elapsed,
		LastElapsedDays: card.ElapsedDays,
		ScheduledDays:   next.ScheduledDays,
		ReviewedAt:      now,
	}

	return next, log
}
