package srs

import (
	"fmt"
	"math"
)

// WeightCount is the number of entries in the FSRS weight vector.
const WeightCount = 17

// Weight indices with a fixed meaning in the formulas.
// w[3] and w[7] are reserved and unused by this scheduler.
const (
	wEasySeed          = 0
	wHardSeed          = 1
	wGoodSeed          = 2
	wInitialState      = 4
	wDifficultyStep    = 5
	wFailureDifficulty = 6
	wRecallExp         = 8
	wRecallDecay       = 9
	wRecallRetention   = 10
	wForgetScale       = 11
	wForgetDifficulty  = 12
	wForgetStability   = 13
	wForgetRetention   = 14
	wHardPenalty       = 15
	wEasyBonus         = 16
)

// DefaultWeights is the hand-tuned weight vector used when no override is configured.
var DefaultWeights = [WeightCount]float64{
	5.8, 1.2, 3.9, 8.3, // w[0..3]   seed stabilities (easy, hard, good, reserved)
	6.0, 0.94, 0.86, 0.01, // w[4..7]   initial state, difficulty step, failure increment, reserved
	1.49, 0.14, 0.94, // w[8..10]  recall stability
	2.18, 0.05, 0.34, 1.26, // w[11..14] forget stability
	0.29, 2.61, // w[15..16] hard penalty, easy bonus
}

// Default scalar knobs
const (
	DefaultRequestedRetention  = 0.85
	DefaultMaximumIntervalDays = 90
)

// Params defines all configurable parameters for the scheduler.
// A Params value is immutable once handed to a Service; the service keeps its own copy.
type Params struct {
	// RequestedRetention is the target probability of recall when a card comes due.
	RequestedRetention float64

	// MaximumIntervalDays is the hard ceiling for any scheduled interval.
	MaximumIntervalDays int

	// Weights controls every memory-state formula.
	Weights [WeightCount]float64
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	RequestedRetention  float64
	MaximumIntervalDays int

	// Weights must contain exactly WeightCount values when set.
	Weights []float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		RequestedRetention:  DefaultRequestedRetention,
		MaximumIntervalDays: DefaultMaximumIntervalDays,
		Weights:             DefaultWeights,
	}
}

// NewParams creates a new Params instance with custom configuration.
// The result is validated; invalid overrides are reported as ErrInvalidParams.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.RequestedRetention != 0 {
		params.RequestedRetention = config.RequestedRetention
	}
	if config.MaximumIntervalDays != 0 {
		params.MaximumIntervalDays = config.MaximumIntervalDays
	}
	if len(config.Weights) > 0 {
		if len(config.Weights) != WeightCount {
			return nil, fmt.Errorf("%w: expected %d weights, got %d",
				ErrInvalidParams, WeightCount, len(config.Weights))
		}
		copy(params.Weights[:], config.Weights)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return params, nil
}

// Validate checks that the parameters keep every formula well defined.
func (p *Params) Validate() error {
	if !(p.RequestedRetention > 0 && p.RequestedRetention < 1) {
		return fmt.Errorf("%w: requested retention %v must be in (0, 1)",
			ErrInvalidParams, p.RequestedRetention)
	}

	if p.MaximumIntervalDays < 1 {
		return fmt.Errorf("%w: maximum interval %d must be at least 1 day",
			ErrInvalidParams, p.MaximumIntervalDays)
	}

	for i, w := range p.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: w[%d] is not finite", ErrInvalidParams, i)
		}
	}

	for _, i := range []int{wEasySeed, wHardSeed, wGoodSeed} {
		if p.Weights[i] <= 0 {
			return fmt.Errorf("%w: seed stability w[%d] = %v must be positive", ErrInvalidParams, i, p.Weights[i])
		}
	}

	if w := p.Weights[wInitialState]; w < 1 || w > 10 {
		return fmt.Errorf("%w: initial state w[%d] = %v must be in [1, 10]", ErrInvalidParams, wInitialState, w)
	}

	if w := p.Weights[wHardPenalty]; w <= 0 || w >= 1 {
		return fmt.Errorf("%w: hard penalty w[%d] = %v must be in (0, 1)", ErrInvalidParams, wHardPenalty, w)
	}

	if w := p.Weights[wEasyBonus]; w <= 1 {
		return fmt.Errorf("%w: easy bonus w[%d] = %v must be greater than 1", ErrInvalidParams, wEasyBonus, w)
	}

	return nil
}

// InitialState returns w[4], the stability and difficulty of a freshly created card.
func (p *Params) InitialState() float64 {
	return p.Weights[wInitialState]
}
