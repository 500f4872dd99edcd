package review_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/phrazzld/scry-fsrs/internal/service/review"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// start carries nanoseconds so that clock truncation is observable.
var start = time.Date(2026, 3, 2, 8, 0, 0, 123456789, time.UTC)

// eventRecorder collects emitted events.
type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (r *eventRecorder) HandleEvent(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *eventRecorder) ofType(eventType string) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// manualClock is a settable Clock.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      review.Service
	deps     review.Dependencies
	clock    *manualClock
	recorder *eventRecorder
}

func newFixture(t *testing.T, mutate ...func(*review.Dependencies)) *fixture {
	t.Helper()

	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cards := make(map[domain.ContentType]store.MemoryCardStore)
	for _, contentType := range domain.ContentTypes() {
		cards[contentType] = sqlite.NewSQLiteMemoryCardStore(db, contentType, logger)
	}

	recorder := &eventRecorder{}
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(recorder)

	clock := &manualClock{now: start}
	deps := review.Dependencies{
		Scheduler: srs.NewDefaultService(),
		Cards:     cards,
		Logs:      sqlite.NewSQLiteReviewLogStore(db, logger),
		DB:        db,
		Emitter:   emitter,
		Clock:     clock.Now,
		Logger:    logger,
	}
	for _, m := range mutate {
		m(&deps)
	}

	svc, err := review.NewService(deps)
	require.NoError(t, err)

	return &fixture{svc: svc, deps: deps, clock: clock, recorder: recorder}
}

func (f *fixture) review(t *testing.T, userID, contentID uuid.UUID, grade domain.Grade) *review.ReviewResult {
	t.Helper()
	result, err := f.svc.ReviewCard(context.Background(), review.ReviewRequest{
		ContentType: domain.ContentTypeFlashcard,
		UserID:      userID,
		ContentID:   contentID,
		Grade:       grade,
	})
	require.NoError(t, err)
	return result
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	db := &sql.DB{}
	valid := func() review.Dependencies {
		return review.Dependencies{
			Scheduler: srs.NewDefaultService(),
			Cards: map[domain.ContentType]store.MemoryCardStore{
				domain.ContentTypeFlashcard: sqlite.NewSQLiteMemoryCardStore(db, domain.ContentTypeFlashcard, nil),
			},
			Logs: sqlite.NewSQLiteReviewLogStore(db, nil),
			DB:   db,
		}
	}

	testCases := []struct {
		name   string
		mutate func(*review.Dependencies)
	}{
		{"nil scheduler", func(d *review.Dependencies) { d.Scheduler = nil }},
		{"no card stores", func(d *review.Dependencies) { d.Cards = nil }},
		{"nil card store", func(d *review.Dependencies) { d.Cards[domain.ContentTypeErrorEntry] = nil }},
		{"unknown content type", func(d *review.Dependencies) { d.Cards["quiz"] = d.Cards[domain.ContentTypeFlashcard] }},
		{"nil log store", func(d *review.Dependencies) { d.Logs = nil }},
		{"nil db", func(d *review.Dependencies) { d.DB = nil }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			deps := valid()
			tc.mutate(&deps)
			svc, err := review.NewService(deps)
			assert.Error(t, err)
			assert.Nil(t, svc)
		})
	}

	svc, err := review.NewService(valid())
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestReviewCard_FirstReviewCreatesCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID := uuid.New(), uuid.New()

	preview, err := f.svc.PreviewCard(ctx, domain.ContentTypeFlashcard, userID, contentID)
	require.NoError(t, err)

	ms := int64(4200)
	result, err := f.svc.ReviewCard(ctx, review.ReviewRequest{
		ContentType:  domain.ContentTypeFlashcard,
		UserID:       userID,
		ContentID:    contentID,
		Grade:        domain.GradeGood,
		ReviewTimeMs: &ms,
	})
	require.NoError(t, err)

	now := start.Truncate(time.Microsecond)
	card := result.Card
	assert.Equal(t, int64(1), card.Version)
	assert.Equal(t, preview.Good.Card.State, card.State)
	assert.Equal(t, preview.Good.Card.Stability, card.Stability)
	assert.Equal(t, preview.Good.Card.Difficulty, card.Difficulty)
	assert.Equal(t, preview.Good.Card.ScheduledDays, card.ScheduledDays)
	assert.Equal(t, now, *card.LastReview, "instants are truncated to microseconds")
	assert.Equal(t, now.AddDate(0, 0, card.ScheduledDays), card.Due)

	require.NotNil(t, result.Log.ReviewTimeMs)
	assert.Equal(t, ms, *result.Log.ReviewTimeMs)
	assert.Equal(t, card.ID, result.Log.CardID)

	history, err := f.svc.GetReviewHistory(ctx, domain.ContentTypeFlashcard, userID, contentID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.Log, history[0])

	recorded := f.recorder.ofType(events.TypeReviewRecorded)
	require.Len(t, recorded, 1)
	var payload events.ReviewRecorded
	require.NoError(t, recorded[0].UnmarshalPayload(&payload))
	assert.Equal(t, card.ID, payload.CardID)
	assert.Equal(t, "good", payload.Grade)
	assert.Equal(t, string(domain.CardStateNew), payload.PreviousState)
	assert.Equal(t, string(card.State), payload.State)
	assert.Equal(t, "flashcard", payload.ContentType)
	assert.False(t, payload.Lapsed)
	assert.True(t, payload.ReviewedAt.Equal(now))
}

func TestReviewCard_SubsequentReviewsUpdateCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID := uuid.New(), uuid.New()

	first := f.review(t, userID, contentID, domain.GradeGood)
	f.clock.Advance(time.Duration(first.Card.ScheduledDays) * 24 * time.Hour)
	second := f.review(t, userID, contentID, domain.GradeGood)
	f.clock.Advance(time.Duration(second.Card.ScheduledDays) * 24 * time.Hour)
	third := f.review(t, userID, contentID, domain.GradeAgain)

	assert.Equal(t, first.Card.ID, third.Card.ID)
	assert.Equal(t, int64(3), third.Card.Version)
	assert.Equal(t, domain.CardStateRelearning, third.Card.State)
	assert.Equal(t, second.Card.Lapses+1, third.Card.Lapses)
	assert.Equal(t, domain.CardStateReview, second.Card.State)

	history, err := f.svc.GetReviewHistory(ctx, domain.ContentTypeFlashcard, userID, contentID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []domain.Grade{domain.GradeGood, domain.GradeGood, domain.GradeAgain},
		[]domain.Grade{history[0].Grade, history[1].Grade, history[2].Grade})

	recorded := f.recorder.ofType(events.TypeReviewRecorded)
	require.Len(t, recorded, 3)
	var payload events.ReviewRecorded
	require.NoError(t, recorded[2].UnmarshalPayload(&payload))
	assert.True(t, payload.Lapsed)
	assert.Equal(t, string(domain.CardStateReview), payload.PreviousState)
}

func TestReviewCard_InvalidRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	negative := int64(-1)

	testCases := []struct {
		name     string
		req      review.ReviewRequest
		expected []error
	}{
		{
			name:     "unknown content type",
			req:      review.ReviewRequest{ContentType: "quiz", UserID: uuid.New(), ContentID: uuid.New(), Grade: domain.GradeGood},
			expected: []error{review.ErrUnknownContentType, domain.ErrInvalidContentType},
		},
		{
			name:     "missing user",
			req:      review.ReviewRequest{ContentType: domain.ContentTypeFlashcard, ContentID: uuid.New(), Grade: domain.GradeGood},
			expected: []error{review.ErrInvalidRequest},
		},
		{
			name:     "missing content",
			req:      review.ReviewRequest{ContentType: domain.ContentTypeFlashcard, UserID: uuid.New(), Grade: domain.GradeGood},
			expected: []error{review.ErrInvalidRequest},
		},
		{
			name:     "grade zero",
			req:      review.ReviewRequest{ContentType: domain.ContentTypeFlashcard, UserID: uuid.New(), ContentID: uuid.New()},
			expected: []error{review.ErrInvalidGrade, domain.ErrInvalidGrade},
		},
		{
			name:     "grade five",
			req:      review.ReviewRequest{ContentType: domain.ContentTypeFlashcard, UserID: uuid.New(), ContentID: uuid.New(), Grade: 5},
			expected: []error{review.ErrInvalidGrade},
		},
		{
			name: "negative review time",
			req: review.ReviewRequest{
				ContentType: domain.ContentTypeFlashcard, UserID: uuid.New(), ContentID: uuid.New(),
				Grade: domain.GradeHard, ReviewTimeMs: &negative,
			},
			expected: []error{review.ErrInvalidRequest, domain.ErrInvalidReviewTime},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := f.svc.ReviewCard(ctx, tc.req)
			require.Error(t, err)
			assert.Nil(t, result)
			for _, expected := range tc.expected {
				assert.ErrorIs(t, err, expected)
			}

			var serviceErr *review.ServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, review.OpReviewCard, serviceErr.Operation)
		})
	}

	count, err := f.svc.CountDueCards(ctx, domain.ContentTypeFlashcard, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.recorder.ofType(events.TypeReviewRecorded))
	assert.Empty(t, f.recorder.ofType(events.TypeReviewFailed), "rejected input is not a failure")
}

func TestReviewCard_ConcurrentReviewsAreSerialized(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID, contentID := uuid.New(), uuid.New()

	const reviewers = 10
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReviewCard(context.Background(), review.ReviewRequest{
				ContentType: domain.ContentTypeFlashcard,
				UserID:      userID,
				ContentID:   contentID,
				Grade:       domain.GradeGood,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := f.svc.GetReviewHistory(context.Background(), domain.ContentTypeFlashcard, userID, contentID)
	require.NoError(t, err)
	assert.Len(t, history, reviewers)

	card, err := f.deps.Cards[domain.ContentTypeFlashcard].Get(context.Background(), userID, contentID)
	require.NoError(t, err)
	assert.Equal(t, int64(reviewers), card.Version)
}

// staleCardStore hands out snapshots that are one version behind the stored row,
// as if another writer had committed in between.
type staleCardStore struct {
	store.MemoryCardStore
}

func (s staleCardStore) WithTx(tx *sql.Tx) store.MemoryCardStore {
	return staleCardStore{MemoryCardStore: s.MemoryCardStore.WithTx(tx)}
}

func (s staleCardStore) GetForUpdate(ctx context.Context, userID, contentID uuid.UUID) (*domain.MemoryCard, error) {
	card, err := s.MemoryCardStore.GetForUpdate(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	card.Version--
	return card, nil
}

func TestReviewCard_VersionConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID := uuid.New(), uuid.New()
	first := f.review(t, userID, contentID, domain.GradeGood)

	deps := f.deps
	deps.Cards = map[domain.ContentType]store.MemoryCardStore{
		domain.ContentTypeFlashcard: staleCardStore{f.deps.Cards[domain.ContentTypeFlashcard]},
	}
	stale, err := review.NewService(deps)
	require.NoError(t, err)

	result, err := stale.ReviewCard(ctx, review.ReviewRequest{
		ContentType: domain.ContentTypeFlashcard,
		UserID:      userID,
		ContentID:   contentID,
		Grade:       domain.GradeEasy,
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, review.ErrConcurrentReview)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	card, err := f.deps.Cards[domain.ContentTypeFlashcard].Get(ctx, userID, contentID)
	require.NoError(t, err)
	assert.Equal(t, first.Card, card, "a rejected review persists nothing")

	history, err := f.svc.GetReviewHistory(ctx, domain.ContentTypeFlashcard, userID, contentID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	failed := f.recorder.ofType(events.TypeReviewFailed)
	require.Len(t, failed, 1)
	var payload events.ReviewFailed
	require.NoError(t, failed[0].UnmarshalPayload(&payload))
	assert.Equal(t, review.OpReviewCard, payload.Operation)
	assert.Equal(t, "flashcard", payload.ContentType)
}

// busyLocker never grants a lock.
type busyLocker struct{}

func (busyLocker) Lock(ctx context.Context, key string) (store.UnlockFunc, error) {
	return nil, fmt.Errorf("%w: %s", store.ErrLockNotAcquired, key)
}

func TestReviewCard_LockNotAcquired(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(d *review.Dependencies) { d.Locker = busyLocker{} })

	_, err := f.svc.ReviewCard(context.Background(), review.ReviewRequest{
		ContentType: domain.ContentTypeExamQuestion,
		UserID:      uuid.New(),
		ContentID:   uuid.New(),
		Grade:       domain.GradeGood,
	})
	assert.ErrorIs(t, err, review.ErrConcurrentReview)
	assert.ErrorIs(t, err, store.ErrLockNotAcquired)
}

func TestReviewCard_HandlerFailureDoesNotFailReview(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.recorder.err = errors.New("handler down")

	result := f.review(t, uuid.New(), uuid.New(), domain.GradeHard)
	assert.NotNil(t, result.Card)
	assert.Len(t, f.recorder.ofType(events.TypeReviewRecorded), 1)
}

func TestPreviewCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID := uuid.New(), uuid.New()

	options, err := f.svc.PreviewCard(ctx, domain.ContentTypeErrorEntry, userID, contentID)
	require.NoError(t, err)
	for _, grade := range domain.Grades() {
		info, err := options.For(grade)
		require.NoError(t, err)
		assert.Equal(t, grade, info.Log.Grade)
		assert.Equal(t, info.Card.State, info.Log.State)
		assert.Equal(t, info.Card.ID, info.Log.CardID)
	}
	assert.LessOrEqual(t, options.Again.Card.ScheduledDays, options.Easy.Card.ScheduledDays)

	_, err = f.deps.Cards[domain.ContentTypeErrorEntry].Get(ctx, userID, contentID)
	assert.ErrorIs(t, err, store.ErrMemoryCardNotFound, "preview persists nothing")

	_, err = f.svc.PreviewCard(ctx, "quiz", userID, contentID)
	assert.ErrorIs(t, err, review.ErrUnknownContentType)
	_, err = f.svc.PreviewCard(ctx, domain.ContentTypeErrorEntry, uuid.Nil, contentID)
	assert.ErrorIs(t, err, review.ErrInvalidRequest)
}

func TestPreviewCard_ExistingCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID := uuid.New(), uuid.New()

	first := f.review(t, userID, contentID, domain.GradeGood)
	f.clock.Advance(3 * 24 * time.Hour)

	options, err := f.svc.PreviewCard(ctx, domain.ContentTypeFlashcard, userID, contentID)
	require.NoError(t, err)
	assert.Equal(t, first.Card.ID, options.Good.Card.ID)
	assert.Equal(t, domain.CardStateReview, options.Good.Card.State)

	result := f.review(t, userID, contentID, domain.GradeGood)
	assert.Equal(t, options.Good.Card.Stability, result.Card.Stability)
	assert.Equal(t, options.Good.Card.Due, result.Card.Due)
}

func TestGetDueCards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	var reviewed []uuid.UUID
	for _, grade := range []domain.Grade{domain.GradeEasy, domain.GradeGood, domain.GradeAgain} {
		result := f.review(t, userID, uuid.New(), grade)
		reviewed = append(reviewed, result.Card.ID)
	}
	f.review(t, uuid.New(), uuid.New(), domain.GradeGood)

	count, err := f.svc.CountDueCards(ctx, domain.ContentTypeFlashcard, userID)
	require.NoError(t, err)
	assert.Zero(t, count, "every review schedules at least a day ahead")

	f.clock.Advance(400 * 24 * time.Hour)

	due, err := f.svc.GetDueCards(ctx, domain.ContentTypeFlashcard, userID, 0)
	require.NoError(t, err)
	require.Len(t, due, 3)
	for i := 1; i < len(due); i++ {
		assert.False(t, due[i].Due.Before(due[i-1].Due), "due cards are ordered most overdue first")
	}
	assert.ElementsMatch(t, reviewed, []uuid.UUID{due[0].ID, due[1].ID, due[2].ID})

	limited, err := f.svc.GetDueCards(ctx, domain.ContentTypeFlashcard, userID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	count, err = f.svc.CountDueCards(ctx, domain.ContentTypeFlashcard, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	other, err := f.svc.GetDueCards(ctx, domain.ContentTypeExamQuestion, userID, 0)
	require.NoError(t, err)
	assert.Empty(t, other, "content types are isolated")

	_, err = f.svc.GetDueCards(ctx, "quiz", userID, 0)
	assert.ErrorIs(t, err, review.ErrUnknownContentType)
	_, err = f.svc.CountDueCards(ctx, "quiz", userID)
	assert.ErrorIs(t, err, review.ErrUnknownContentType)
}

func TestImportLegacyCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID := uuid.New(), uuid.New()
	lastReviewed := start.Add(-10 * 24 * time.Hour).Truncate(time.Microsecond)

	card, err := f.svc.ImportLegacyCard(ctx, domain.ContentTypeExamQuestion, userID, contentID, uuid.Nil, domain.LegacyIntervalModel{
		Interval:       30,
		EaseFactor:     2.5,
		Repetitions:    5,
		Lapses:         1,
		LastReviewedAt: &lastReviewed,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CardStateReview, card.State)
	assert.InDelta(t, 24.0, card.Stability, 1e-9)
	assert.InDelta(t, 4.0, card.Difficulty, 1e-9)
	assert.Equal(t, 30, card.ScheduledDays)
	assert.Equal(t, lastReviewed.AddDate(0, 0, 30), card.Due)
	assert.Equal(t, int64(1), card.Version)

	stored, err := f.deps.Cards[domain.ContentTypeExamQuestion].Get(ctx, userID, contentID)
	require.NoError(t, err)
	assert.Equal(t, card, stored)

	_, err = f.svc.ImportLegacyCard(ctx, domain.ContentTypeExamQuestion, userID, contentID, uuid.Nil, domain.LegacyIntervalModel{
		Interval: 1, EaseFactor: 2.5,
	})
	assert.ErrorIs(t, err, review.ErrCardExists)

	_, err = f.svc.ImportLegacyCard(ctx, domain.ContentTypeExamQuestion, userID, uuid.New(), uuid.Nil, domain.LegacyIntervalModel{
		Interval: -1, EaseFactor: 2.5,
	})
	assert.ErrorIs(t, err, review.ErrInvalidRequest)
	assert.ErrorIs(t, err, srs.ErrInvalidLegacyModel)

	// An imported card reviews like any other.
	f.clock.Advance(30 * 24 * time.Hour)
	result, err := f.svc.ReviewCard(ctx, review.ReviewRequest{
		ContentType: domain.ContentTypeExamQuestion,
		UserID:      userID,
		ContentID:   contentID,
		Grade:       domain.GradeGood,
	})
	require.NoError(t, err)
	assert.Equal(t, card.ID, result.Card.ID)
	assert.Equal(t, int64(2), result.Card.Version)
	assert.Equal(t, 6, result.Card.Reps)
}

func TestGetReviewHistory_MissingCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.GetReviewHistory(context.Background(), domain.ContentTypeFlashcard, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, review.ErrCardNotFound)

	var serviceErr *review.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, review.OpGetReviewHistory, serviceErr.Operation)
}

type failingOptimizer struct{}

func (failingOptimizer) Optimize(context.Context, uuid.UUID, []*domain.ReviewLogEntry) (srs.Params, error) {
	return srs.Params{}, errors.New("not enough history")
}

func TestOptimizeParameters(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()
	f.review(t, userID, uuid.New(), domain.GradeGood)

	params, err := f.svc.OptimizeParameters(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, *srs.NewDefaultParams(), params)

	failing := newFixture(t, func(d *review.Dependencies) { d.Optimizer = failingOptimizer{} })
	_, err = failing.svc.OptimizeParameters(context.Background(), userID)
	var serviceErr *review.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, review.OpOptimizeParameters, serviceErr.Operation)
	assert.Len(t, failing.recorder.ofType(events.TypeReviewFailed), 1)
}

func TestReviewCard_DeckRecordedOnCreation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID, deckID := uuid.New(), uuid.New(), uuid.New()

	first, err := f.svc.ReviewCard(ctx, review.ReviewRequest{
		ContentType: domain.ContentTypeFlashcard,
		UserID:      userID,
		ContentID:   contentID,
		DeckID:      deckID,
		Grade:       domain.GradeGood,
	})
	require.NoError(t, err)
	assert.Equal(t, deckID, first.Card.DeckID)

	stored, err := f.deps.Cards[domain.ContentTypeFlashcard].Get(ctx, userID, contentID)
	require.NoError(t, err)
	assert.Equal(t, deckID, stored.DeckID)

	f.clock.Advance(10 * 24 * time.Hour)
	second, err := f.svc.ReviewCard(ctx, review.ReviewRequest{
		ContentType: domain.ContentTypeFlashcard,
		UserID:      userID,
		ContentID:   contentID,
		DeckID:      uuid.New(),
		Grade:       domain.GradeGood,
	})
	require.NoError(t, err)
	assert.Equal(t, deckID, second.Card.DeckID, "the deck is fixed when the card is created")

	undecked := f.review(t, userID, uuid.New(), domain.GradeGood)
	assert.Equal(t, uuid.Nil, undecked.Card.DeckID)
}

func TestImportLegacyCard_DeckAndPrecision(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	userID, contentID, deckID := uuid.New(), uuid.New(), uuid.New()
	lastReviewed := time.Date(2026, 2, 20, 9, 30, 0, 123456789, time.UTC)

	card, err := f.svc.ImportLegacyCard(ctx, domain.ContentTypeFlashcard, userID, contentID, deckID, domain.LegacyIntervalModel{
		Interval:       7,
		EaseFactor:     2.5,
		Repetitions:    3,
		LastReviewedAt: &lastReviewed,
	})
	require.NoError(t, err)
	assert.Equal(t, deckID, card.DeckID)

	truncated := lastReviewed.Truncate(time.Microsecond)
	require.NotNil(t, card.LastReview)
	assert.Equal(t, truncated, *card.LastReview)
	assert.Equal(t, truncated.AddDate(0, 0, 7), card.Due)
	assert.Equal(t, 123456789, lastReviewed.Nanosecond(), "the caller's instant is left untouched")

	stored, err := f.deps.Cards[domain.ContentTypeFlashcard].Get(ctx, userID, contentID)
	require.NoError(t, err)
	assert.Equal(t, card, stored)
}
