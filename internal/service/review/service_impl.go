package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/redact"
	"github.com/phrazzld/scry-fsrs/internal/store"
)

// Dependencies are the collaborators of the review Service.
// Scheduler, Cards, Logs and DB are required; the rest have defaults.
type Dependencies struct {
	Scheduler srs.Service
	// Cards holds one store per supported content type.
	Cards map[domain.ContentType]store.MemoryCardStore
	Logs  store.ReviewLogStore
	DB    *sql.DB

	// Locker serializes reviews of the same card. Defaults to an in-process locker.
	Locker store.KeyLocker
	// Emitter receives review events. Defaults to an emitter with no handlers.
	Emitter events.EventEmitter
	// Optimizer defaults to one returning the scheduler's own parameters.
	Optimizer srs.ParameterOptimizer
	// Clock defaults to time.Now.
	Clock  Clock
	Logger *slog.Logger
}

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	scheduler srs.Service
	cards     map[domain.ContentType]store.MemoryCardStore
	logs      store.ReviewLogStore
	db        *sql.DB
	locker    store.KeyLocker
	emitter   events.EventEmitter
	optimizer srs.ParameterOptimizer
	clock     Clock
	logger    *slog.Logger
}

// NewService creates a review Service.
func NewService(deps Dependencies) (Service, error) {
	if deps.Scheduler == nil {
		return nil, errors.New("scheduler cannot be nil")
	}
	if len(deps.Cards) == 0 {
		return nil, errors.New("at least one card store is required")
	}
	if deps.Logs == nil {
		return nil, errors.New("review log store cannot be nil")
	}
	if deps.DB == nil {
		return nil, errors.New("db cannot be nil")
	}

	cards := make(map[domain.ContentType]store.MemoryCardStore, len(deps.Cards))
	for contentType, cardStore := range deps.Cards {
		if !contentType.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidContentType, contentType)
		}
		if cardStore == nil {
			return nil, fmt.Errorf("card store for %q cannot be nil", contentType)
		}
		cards[contentType] = cardStore
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	log := deps.Logger.With(slog.String("component", "review_service"))

	if deps.Locker == nil {
		deps.Locker = store.NewLocalKeyLocker()
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NewInMemoryEventEmitter(deps.Logger)
	}
	if deps.Optimizer == nil {
		deps.Optimizer = srs.NewDefaultsOptimizer(deps.Scheduler.Params())
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &serviceImpl{
		scheduler: deps.Scheduler,
		cards:     cards,
		logs:      deps.Logs,
		db:        deps.DB,
		locker:    deps.Locker,
		emitter:   deps.Emitter,
		optimizer: deps.Optimizer,
		clock:     deps.Clock,
		logger:    log,
	}, nil
}

// now truncates to the microsecond resolution every backend stores.
func (s *serviceImpl) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func (s *serviceImpl) cardStore(operation string, contentType domain.ContentType) (store.MemoryCardStore, error) {
	cards, ok := s.cards[contentType]
	if !ok {
		return nil, NewServiceError(operation, fmt.Sprintf("content type %q", contentType), ErrUnknownContentType)
	}
	return cards, nil
}

func validateIdentity(operation string, userID, contentID uuid.UUID) error {
	if userID == uuid.Nil {
		return NewServiceError(operation, "user ID is required", ErrInvalidRequest)
	}
	if contentID == uuid.Nil {
		return NewServiceError(operation, "content ID is required", ErrInvalidRequest)
	}
	return nil
}

// PreviewCard implements Service.PreviewCard
func (s *serviceImpl) PreviewCard(
	ctx context.Context,
	contentType domain.ContentType,
	userID, contentID uuid.UUID,
) (*srs.SchedulingOptions, error) {
	cards, err := s.cardStore(OpPreviewCard, contentType)
	if err != nil {
		return nil, err
	}
	if err := validateIdentity(OpPreviewCard, userID, contentID); err != nil {
		return nil, err
	}

	now := s.now()
	card, err := cards.Get(ctx, userID, contentID)
	if errors.Is(err, store.ErrMemoryCardNotFound) {
		card, err = s.scheduler.NewCard(userID, contentID, uuid.Nil, contentType, now)
	}
	if err != nil {
		return nil, s.fail(ctx, OpPreviewCard, contentType, "failed to load card", err)
	}

	options, err := s.scheduler.Schedule(card, now)
	if err != nil {
		return nil, s.fail(ctx, OpPreviewCard, contentType, "failed to schedule card", err)
	}
	return options, nil
}

// ReviewCard implements Service.ReviewCard
func (s *serviceImpl) ReviewCard(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("content_type", string(req.ContentType)),
		slog.String("user_id", req.UserID.String()),
		slog.String("content_id", req.ContentID.String()))

	cards, err := s.cardStore(OpReviewCard, req.ContentType)
	if err != nil {
		return nil, err
	}
	if err := validateIdentity(OpReviewCard, req.UserID, req.ContentID); err != nil {
		return nil, err
	}
	if !req.Grade.IsValid() {
		log.Warn("invalid review grade", slog.Int("grade", int(req.Grade)))
		return nil, NewServiceError(OpReviewCard, fmt.Sprintf("grade %d", int(req.Grade)), ErrInvalidGrade)
	}
	if req.ReviewTimeMs != nil && *req.ReviewTimeMs < 0 {
		return nil, NewServiceError(OpReviewCard, "review time", fmt.Errorf("%w: %w", ErrInvalidRequest, domain.ErrInvalidReviewTime))
	}

	unlock, err := s.locker.Lock(ctx, store.CardLockKey(string(req.ContentType), req.UserID, req.ContentID))
	if err != nil {
		return nil, s.fail(ctx, OpReviewCard, req.ContentType, "card is locked by another review",
			fmt.Errorf("%w: %w", ErrConcurrentReview, err))
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release card lock", slog.String("error", err.Error()))
		}
	}()

	now := s.now()
	var (
		result         *ReviewResult
		previous       domain.CardState
		previousLapses int
	)
	err = store.RunInTransaction(logger.WithLogger(ctx, log), s.db, func(ctx context.Context, tx *sql.Tx) error {
		txCards := cards.WithTx(tx)

		card, err := txCards.GetForUpdate(ctx, req.UserID, req.ContentID)
		created := false
		if errors.Is(err, store.ErrMemoryCardNotFound) {
			card, err = s.scheduler.NewCard(req.UserID, req.ContentID, req.DeckID, req.ContentType, now)
			created = true
		}
		if err != nil {
			return err
		}
		previous, previousLapses = card.State, card.Lapses

		info, err := s.scheduler.Review(card, req.Grade, now, req.ReviewTimeMs)
		if err != nil {
			return err
		}

		if created {
			err = txCards.Create(ctx, info.Card)
		} else {
			err = txCards.Update(ctx, info.Card)
		}
		if err != nil {
			return err
		}

		if err := s.logs.WithTx(tx).Create(ctx, info.Log); err != nil {
			return err
		}

		result = &ReviewResult{Card: info.Card, Log: info.Log}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) || errors.Is(err, store.ErrMemoryCardExists) {
			log.Warn("concurrent review rejected", slog.String("error", err.Error()))
			err = fmt.Errorf("%w: %w", ErrConcurrentReview, err)
		}
		return nil, s.fail(ctx, OpReviewCard, req.ContentType, "failed to record review", err)
	}

	log.Debug("review recorded",
		slog.String("card_id", result.Card.ID.String()),
		slog.String("grade", req.Grade.String()),
		slog.String("state", string(result.Card.State)),
		slog.Int("scheduled_days", result.Card.ScheduledDays),
		slog.Time("due", result.Card.Due))

	s.emit(ctx, events.TypeReviewRecorded, events.ReviewRecorded{
		CardID:        result.Card.ID,
		UserID:        result.Card.UserID,
		ContentID:     result.Card.ContentID,
		ContentType:   string(result.Card.ContentType),
		Grade:         req.Grade.String(),
		PreviousState: string(previous),
		State:         string(result.Card.State),
		Stability:     result.Card.Stability,
		Difficulty:    result.Card.Difficulty,
		ScheduledDays: result.Card.ScheduledDays,
		Lapsed:        result.Card.Lapses > previousLapses,
		ReviewedAt:    now,
	}, now)

	return result, nil
}

// GetDueCards implements Service.GetDueCards
func (s *serviceImpl) GetDueCards(
	ctx context.Context,
	contentType domain.ContentType,
	userID uuid.UUID,
	limit int,
) ([]*domain.MemoryCard, error) {
	cards, err := s.cardStore(OpGetDueCards, contentType)
	if err != nil {
		return nil, err
	}

	due, err := cards.ListDue(ctx, userID, s.now(), limit)
	if err != nil {
		return nil, s.fail(ctx, OpGetDueCards, contentType, "failed to list due cards", err)
	}
	return due, nil
}

// CountDueCards implements Service.CountDueCards
func (s *serviceImpl) CountDueCards(
	ctx context.Context,
	contentType domain.ContentType,
	userID uuid.UUID,
) (int, error) {
	cards, err := s.cardStore(OpCountDueCards, contentType)
	if err != nil {
		return 0, err
	}

	count, err := cards.CountDue(ctx, userID, s.now())
	if err != nil {
		return 0, s.fail(ctx, OpCountDueCards, contentType, "failed to count due cards", err)
	}
	return count, nil
}

// ImportLegacyCard implements Service.ImportLegacyCard
func (s *serviceImpl) ImportLegacyCard(
	ctx context.Context,
	contentType domain.ContentType,
	userID, contentID, deckID uuid.UUID,
	legacy domain.LegacyIntervalModel,
) (*domain.MemoryCard, error) {
	cards, err := s.cardStore(OpImportLegacyCard, contentType)
	if err != nil {
		return nil, err
	}
	if err := validateIdentity(OpImportLegacyCard, userID, contentID); err != nil {
		return nil, err
	}

	if legacy.LastReviewedAt != nil {
		last := legacy.LastReviewedAt.UTC().Truncate(time.Microsecond)
		legacy.LastReviewedAt = &last
	}

	card, err := s.scheduler.ConvertLegacyIntervalModel(userID, contentID, deckID, contentType, legacy, s.now())
	if err != nil {
		return nil, NewServiceError(OpImportLegacyCard, "invalid legacy model", fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	if err := cards.Create(ctx, card); err != nil {
		if errors.Is(err, store.ErrMemoryCardExists) {
			return nil, NewServiceError(OpImportLegacyCard, "card already exists", ErrCardExists)
		}
		return nil, s.fail(ctx, OpImportLegacyCard, contentType, "failed to create card", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("imported legacy card",
		slog.String("card_id", card.ID.String()),
		slog.String("state", string(card.State)),
		slog.Int("scheduled_days", card.ScheduledDays))
	return card, nil
}

// GetReviewHistory implements Service.GetReviewHistory
func (s *serviceImpl) GetReviewHistory(
	ctx context.Context,
	contentType domain.ContentType,
	userID, contentID uuid.UUID,
) ([]*domain.ReviewLogEntry, error) {
	cards, err := s.cardStore(OpGetReviewHistory, contentType)
	if err != nil {
		return nil, err
	}

	card, err := cards.Get(ctx, userID, contentID)
	if err != nil {
		if errors.Is(err, store.ErrMemoryCardNotFound) {
			return nil, NewServiceError(OpGetReviewHistory, "no card for content", ErrCardNotFound)
		}
		return nil, s.fail(ctx, OpGetReviewHistory, contentType, "failed to load card", err)
	}

	history, err := s.logs.ListByCard(ctx, card.ID)
	if err != nil {
		return nil, s.fail(ctx, OpGetReviewHistory, contentType, "failed to list review logs", err)
	}
	return history, nil
}

// OptimizeParameters implements Service.OptimizeParameters
func (s *serviceImpl) OptimizeParameters(ctx context.Context, userID uuid.UUID) (srs.Params, error) {
	history, err := s.logs.ListByUser(ctx, userID, time.Time{})
	if err != nil {
		return srs.Params{}, s.fail(ctx, OpOptimizeParameters, "", "failed to load review history", err)
	}

	params, err := s.optimizer.Optimize(ctx, userID, history)
	if err != nil {
		return srs.Params{}, s.fail(ctx, OpOptimizeParameters, "", "optimizer failed", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("optimized parameters",
		slog.String("user_id", userID.String()),
		slog.Int("history_size", len(history)))
	return params, nil
}

// fail logs an unexpected failure, announces it as a review.failed event and wraps it.
func (s *serviceImpl) fail(
	ctx context.Context,
	operation string,
	contentType domain.ContentType,
	message string,
	err error,
) error {
	logger.FromContextOrDefault(ctx, s.logger).Error(message,
		slog.String("operation", operation),
		slog.String("error", err.Error()))

	s.emit(ctx, events.TypeReviewFailed, events.ReviewFailed{
		Operation:   operation,
		ContentType: string(contentType),
		Error:       redact.Error(err),
	}, s.now())

	return NewServiceError(operation, message, err)
}

// emit publishes an event. Handler failures are logged and never fail the operation.
func (s *serviceImpl) emit(ctx context.Context, eventType string, payload any, at time.Time) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(eventType, payload, at)
	if err != nil {
		log.Error("failed to build event", slog.String("event_type", eventType), slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
