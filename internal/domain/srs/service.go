package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// Common errors
var (
	ErrNilCard            = errors.New("memory card cannot be nil")
	ErrInvalidGrade       = fmt.Errorf("%w: must be one of again, hard, good, easy", domain.ErrInvalidGrade)
	ErrInvalidParams      = errors.New("invalid scheduler parameters")
	ErrInvalidLegacyModel = errors.New("invalid legacy interval model")
)

// IDGenerator produces identifiers for new cards and review log entries.
type IDGenerator func() uuid.UUID

// SchedulingInfo is one possible outcome of a review: the card as it would be
// persisted and the log entry recording the grade.
type SchedulingInfo struct {
	Card *domain.MemoryCard     `json:"card"`
	Log  *domain.ReviewLogEntry `json:"log"`
}

// SchedulingOptions holds the outcome of every grade for the same card and instant.
type SchedulingOptions struct {
	Again SchedulingInfo `json:"again"`
	Hard  SchedulingInfo `json:"hard"`
	Good  SchedulingInfo `json:"good"`
	Easy  SchedulingInfo `json:"easy"`
}

// For returns the outcome for grade.
func (o *SchedulingOptions) For(grade domain.Grade) (SchedulingInfo, error) {
	switch grade {
	case domain.GradeAgain:
		return o.Again, nil
	case domain.GradeHard:
		return o.Hard, nil
	case domain.GradeGood:
		return o.Good, nil
	case domain.GradeEasy:
		return o.Easy, nil
	default:
		return SchedulingInfo{}, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}
}

// Service defines the interface for scheduler operations.
// Every method is a pure computation over its arguments: no I/O, no clock reads,
// and no shared mutable state, so a Service is safe for concurrent use.
type Service interface {
	// NewCard creates a card in the NEW state seeded with the initial memory state.
	// deckID may be uuid.Nil for content outside any deck.
	NewCard(
		userID, contentID, deckID uuid.UUID,
		contentType domain.ContentType,
		now time.Time,
	) (*domain.MemoryCard, error)

	// Schedule computes the outcome of each grade without committing to one.
	Schedule(card *domain.MemoryCard, now time.Time) (*SchedulingOptions, error)

	// Review applies grade to card and returns the resulting card and log entry.
	// reviewTimeMs, when non-nil, is recorded on the log entry.
	Review(
		card *domain.MemoryCard,
		grade domain.Grade,
		now time.Time,
		reviewTimeMs *int64,
	) (*SchedulingInfo, error)

	// ConvertLegacyIntervalModel seeds a card from the older interval/ease-factor model.
	ConvertLegacyIntervalModel(
		userID, contentID, deckID uuid.UUID,
		contentType domain.ContentType,
		legacy domain.LegacyIntervalModel,
		now time.Time,
	) (*domain.MemoryCard, error)

	// Params returns a copy of the parameters the service was built with.
	Params() Params
}

// Option configures a Service.
type Option func(*defaultService)

// WithIDGenerator overrides how card and log identifiers are generated.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *defaultService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params Params
	newID  IDGenerator
}

// NewDefaultService creates a new scheduler with default parameters
func NewDefaultService(opts ...Option) Service {
	svc, err := NewServiceWithParams(NewDefaultParams(), opts...)
	if err != nil {
		// ALLOW-PANIC: default parameters are validated by tests
		panic(err)
	}
	return svc
}

// NewServiceWithParams creates a new scheduler with custom parameters.
// The parameters are copied, so later changes to params do not affect the service.
func NewServiceWithParams(params *Params, opts ...Option) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &defaultService{
		params: *params,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// NewCard implements Service.NewCard
func (s *defaultService) NewCard(
	userID, contentID, deckID uuid.UUID,
	contentType domain.ContentType,
	now time.Time,
) (*domain.MemoryCard, error) {
	card, err := domain.NewMemoryCard(s.newID(), userID, contentID, contentType, s.params.InitialState(), now)
	if err != nil {
		return nil, err
	}
	card.DeckID = deckID
	return card, nil
}

// Schedule implements Service.Schedule
func (s *defaultService) Schedule(card *domain.MemoryCard, now time.Time) (*SchedulingOptions, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	now = now.UTC()
	outcome := func(grade domain.Grade) SchedulingInfo {
		next, log := applyGrade(card, gradePolicies[grade], now, &s.params, s.newID())
		return SchedulingInfo{Card: next, Log: log}
	}

	return &SchedulingOptions{
		Again: outcome(domain.GradeAgain),
		Hard:  outcome(domain.GradeHard),
		Good:  outcome(domain.GradeGood),
		Easy:  outcome(domain.GradeEasy),
	}, nil
}

// Review implements Service.Review
func (s *defaultService) Review(
	card *domain.MemoryCard,
	grade domain.Grade,
	now time.Time,
	reviewTimeMs *int64,
) (*SchedulingInfo, error) {
	if !grade.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}

	options, err := s.Schedule(card, now)
	if err != nil {
		return nil, err
	}

	info, err := options.For(grade)
	if err != nil {
		return nil, err
	}

	if reviewTimeMs != nil {
		ms := *reviewTimeMs
		info.Log.ReviewTimeMs = &ms
	}

	return &info, nil
}

// Params implements Service.Params
func (s *defaultService) Params() Params {
	return s.params
}
