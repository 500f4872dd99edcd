// Package storetest holds the behavioral contract every store backend must pass.
// Backend packages call Run from their own tests with a constructor for fresh stores.
package storetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Harness exposes the stores under test.
type Harness struct {
	DB    *sql.DB
	Cards func(contentType domain.ContentType) store.MemoryCardStore
	Logs  store.ReviewLogStore
}

// NewHarness returns stores backed by a ready-to-use schema.
type NewHarness func(t *testing.T) *Harness

// base is a fixed instant with microsecond precision, the resolution every backend keeps.
var base = time.Date(2026, 4, 18, 9, 15, 30, 123456000, time.UTC)

// Run executes the full contract against the backend produced by newHarness.
func Run(t *testing.T, newHarness NewHarness) {
	t.Run("card round trip", func(t *testing.T) { testCardRoundTrip(t, newHarness(t)) })
	t.Run("new card round trip", func(t *testing.T) { testNewCardRoundTrip(t, newHarness(t)) })
	t.Run("duplicate card", func(t *testing.T) { testDuplicateCard(t, newHarness(t)) })
	t.Run("invalid card", func(t *testing.T) { testInvalidCard(t, newHarness(t)) })
	t.Run("content type isolation", func(t *testing.T) { testContentTypeIsolation(t, newHarness(t)) })
	t.Run("versioned update", func(t *testing.T) { testVersionedUpdate(t, newHarness(t)) })
	t.Run("list and count due", func(t *testing.T) { testListDue(t, newHarness(t)) })
	t.Run("delete", func(t *testing.T) { testDelete(t, newHarness(t)) })
	t.Run("transaction rollback", func(t *testing.T) { testTransactionRollback(t, newHarness(t)) })
	t.Run("review log round trip", func(t *testing.T) { testReviewLogRoundTrip(t, newHarness(t)) })
	t.Run("review log ordering", func(t *testing.T) { testReviewLogOrdering(t, newHarness(t)) })
	t.Run("review log for missing card", func(t *testing.T) { testReviewLogMissingCard(t, newHarness(t)) })
}

// ReviewedCard returns a valid REVIEW-state card with every optional field set.
func ReviewedCard(contentType domain.ContentType) *domain.MemoryCard {
	lastReview := base.Add(-72 * time.Hour)
	return &domain.MemoryCard{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		ContentID:     uuid.New(),
		ContentType:   contentType,
		DeckID:        uuid.New(),
		DeckName:      "Organic chemistry",
		Stability:     17.482913,
		Difficulty:    5.7312,
		ElapsedDays:   3.25,
		ScheduledDays: 21,
		Reps:          6,
		Lapses:        2,
		State:         domain.CardStateReview,
		Due:           lastReview.AddDate(0, 0, 21),
		LastReview:    &lastReview,
		CreatedAt:     base.AddDate(0, -2, 0),
		UpdatedAt:     lastReview,
	}
}

func newCard(t *testing.T, userID uuid.UUID, contentType domain.ContentType, due time.Time) *domain.MemoryCard {
	t.Helper()
	card, err := domain.NewMemoryCard(uuid.New(), userID, uuid.New(), contentType, 6, due)
	require.NoError(t, err)
	return card
}

func logFor(card *domain.MemoryCard, grade domain.Grade, reviewedAt time.Time) *domain.ReviewLogEntry {
	ms := int64(5230)
	return &domain.ReviewLogEntry{
		ID:              uuid.New(),
		CardID:          card.ID,
		UserID:          card.UserID,
		Grade:           grade,
		State:           domain.CardStateReview,
		Due:             reviewedAt.AddDate(0, 0, 9),
		Stability:       9.1234567,
		Difficulty:      4.06,
		ElapsedDays:     2.5,
		LastElapsedDays: 1.75,
		ScheduledDays:   9,
		ReviewTimeMs:    &ms,
		ReviewedAt:      reviewedAt,
	}
}

func testCardRoundTrip(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)

	card := ReviewedCard(domain.ContentTypeFlashcard)
	require.NoError(t, cards.Create(ctx, card))
	assert.Equal(t, int64(1), card.Version)

	loaded, err := cards.Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)
	assert.Equal(t, card, loaded)
}

func testNewCardRoundTrip(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeErrorEntry)

	card := newCard(t, uuid.New(), domain.ContentTypeErrorEntry, base)
	require.NoError(t, cards.Create(ctx, card))

	loaded, err := cards.Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)
	assert.Equal(t, card, loaded)
	assert.Nil(t, loaded.LastReview)
	assert.Equal(t, uuid.Nil, loaded.DeckID)
	assert.Empty(t, loaded.DeckName)
}

func testDuplicateCard(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)

	card := ReviewedCard(domain.ContentTypeFlashcard)
	require.NoError(t, cards.Create(ctx, card))

	again := ReviewedCard(domain.ContentTypeFlashcard)
	again.UserID = card.UserID
	again.ContentID = card.ContentID

	err := cards.Create(ctx, again)
	assert.ErrorIs(t, err, store.ErrMemoryCardExists)
	assert.True(t, store.IsDuplicateError(err))
}

func testInvalidCard(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)

	card := ReviewedCard(domain.ContentTypeFlashcard)
	card.Difficulty = 11
	err := cards.Create(ctx, card)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrInvalidDifficulty)

	other := ReviewedCard(domain.ContentTypeExamQuestion)
	assert.ErrorIs(t, cards.Create(ctx, other), store.ErrInvalidEntity)

	assert.ErrorIs(t, cards.Create(ctx, nil), store.ErrInvalidEntity)
}

func testContentTypeIsolation(t *testing.T, h *Harness) {
	ctx := context.Background()
	flashcards := h.Cards(domain.ContentTypeFlashcard)
	questions := h.Cards(domain.ContentTypeExamQuestion)

	card := ReviewedCard(domain.ContentTypeFlashcard)
	require.NoError(t, flashcards.Create(ctx, card))

	_, err := questions.Get(ctx, card.UserID, card.ContentID)
	assert.ErrorIs(t, err, store.ErrMemoryCardNotFound)

	// The same (user, content) pair may hold one card per content type.
	sibling := ReviewedCard(domain.ContentTypeExamQuestion)
	sibling.UserID = card.UserID
	sibling.ContentID = card.ContentID
	require.NoError(t, questions.Create(ctx, sibling))

	count, err := questions.CountDue(ctx, card.UserID, base.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.ErrorIs(t, questions.Delete(ctx, card.ID), store.ErrMemoryCardNotFound)
}

func testVersionedUpdate(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)

	card := ReviewedCard(domain.ContentTypeFlashcard)
	require.NoError(t, cards.Create(ctx, card))

	first, err := cards.Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)
	stale, err := cards.Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)

	first.Stability = 30.5
	first.Reps++
	first.UpdatedAt = base
	require.NoError(t, cards.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.Lapses++
	err = cards.Update(ctx, stale)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	var storeErr *store.StoreError
	if assert.ErrorAs(t, err, &storeErr) {
		assert.Equal(t, "update", storeErr.Operation)
	}
	assert.Equal(t, int64(1), stale.Version, "a rejected update must not bump the caller's version")

	loaded, err := cards.Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	missing := ReviewedCard(domain.ContentTypeFlashcard)
	missing.Version = 1
	assert.ErrorIs(t, cards.Update(ctx, missing), store.ErrMemoryCardNotFound)
}

func testListDue(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)
	userID := uuid.New()

	late := newCard(t, userID, domain.ContentTypeFlashcard, base.Add(-time.Hour))
	early := newCard(t, userID, domain.ContentTypeFlashcard, base.Add(-48*time.Hour))
	exact := newCard(t, userID, domain.ContentTypeFlashcard, base)
	future := newCard(t, userID, domain.ContentTypeFlashcard, base.Add(time.Microsecond))
	otherUser := newCard(t, uuid.New(), domain.ContentTypeFlashcard, base.Add(-72*time.Hour))
	for _, c := range []*domain.MemoryCard{late, early, exact, future, otherUser} {
		require.NoError(t, cards.Create(ctx, c))
	}

	due, err := cards.ListDue(ctx, userID, base, 0)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)
	assert.Equal(t, exact.ID, due[2].ID)

	limited, err := cards.ListDue(ctx, userID, base, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, early.ID, limited[0].ID)

	count, err := cards.CountDue(ctx, userID, base)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	none, err := cards.ListDue(ctx, uuid.New(), base, 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)

	card := ReviewedCard(domain.ContentTypeFlashcard)
	require.NoError(t, cards.Create(ctx, card))
	require.NoError(t, h.Logs.Create(ctx, logFor(card, domain.GradeGood, base)))

	require.NoError(t, cards.Delete(ctx, card.ID))

	_, err := cards.Get(ctx, card.UserID, card.ContentID)
	assert.ErrorIs(t, err, store.ErrMemoryCardNotFound)
	assert.ErrorIs(t, cards.Delete(ctx, card.ID), store.ErrMemoryCardNotFound)

	logs, err := h.Logs.ListByCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, logs, "deleting a card removes its history")
}

func testTransactionRollback(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)

	card := ReviewedCard(domain.ContentTypeFlashcard)
	require.NoError(t, cards.Create(ctx, card))

	errAbort := assert.AnError
	err := store.RunInTransaction(ctx, h.DB, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := cards.WithTx(tx).GetForUpdate(ctx, card.UserID, card.ContentID)
		if err != nil {
			return err
		}
		locked.Lapses = 9
		if err := cards.WithTx(tx).Update(ctx, locked); err != nil {
			return err
		}
		if err := h.Logs.WithTx(tx).Create(ctx, logFor(locked, domain.GradeAgain, base)); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	loaded, err := cards.Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)
	assert.Equal(t, card, loaded, "card write must roll back with the log write")

	logs, err := h.Logs.ListByCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	err = store.RunInTransaction(ctx, h.DB, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := cards.WithTx(tx).GetForUpdate(ctx, card.UserID, card.ContentID)
		if err != nil {
			return err
		}
		locked.Lapses = 3
		if err := cards.WithTx(tx).Update(ctx, locked); err != nil {
			return err
		}
		return h.Logs.WithTx(tx).Create(ctx, logFor(locked, domain.GradeAgain, base))
	})
	require.NoError(t, err)

	loaded, err = cards.Get(ctx, card.UserID, card.ContentID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Lapses)
	assert.Equal(t, int64(2), loaded.Version)

	_, err = cards.GetForUpdate(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrMemoryCardNotFound)
}

func testReviewLogRoundTrip(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeExamQuestion)

	card := ReviewedCard(domain.ContentTypeExamQuestion)
	require.NoError(t, cards.Create(ctx, card))

	withTime := logFor(card, domain.GradeHard, base)
	withoutTime := logFor(card, domain.GradeEasy, base.Add(time.Minute))
	withoutTime.ReviewTimeMs = nil
	require.NoError(t, h.Logs.Create(ctx, withTime))
	require.NoError(t, h.Logs.Create(ctx, withoutTime))

	logs, err := h.Logs.ListByCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, withTime, logs[0])
	assert.Equal(t, withoutTime, logs[1])

	assert.ErrorIs(t, h.Logs.Create(ctx, withTime), store.ErrDuplicate)

	invalid := logFor(card, domain.Grade(7), base)
	assert.ErrorIs(t, h.Logs.Create(ctx, invalid), store.ErrInvalidEntity)
}

func testReviewLogOrdering(t *testing.T, h *Harness) {
	ctx := context.Background()
	cards := h.Cards(domain.ContentTypeFlashcard)
	userID := uuid.New()

	a := newCard(t, userID, domain.ContentTypeFlashcard, base)
	b := newCard(t, userID, domain.ContentTypeFlashcard, base)
	require.NoError(t, cards.Create(ctx, a))
	require.NoError(t, cards.Create(ctx, b))

	third := logFor(a, domain.GradeGood, base.Add(2*time.Hour))
	first := logFor(b, domain.GradeAgain, base.Add(-time.Hour))
	second := logFor(a, domain.GradeHard, base)
	for _, e := range []*domain.ReviewLogEntry{third, first, second} {
		require.NoError(t, h.Logs.Create(ctx, e))
	}

	byCard, err := h.Logs.ListByCard(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, byCard, 2)
	assert.Equal(t, second.ID, byCard[0].ID)
	assert.Equal(t, third.ID, byCard[1].ID)

	all, err := h.Logs.ListByUser(ctx, userID, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, third.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	recent, err := h.Logs.ListByUser(ctx, userID, base)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)

	none, err := h.Logs.ListByUser(ctx, uuid.New(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testReviewLogMissingCard(t *testing.T, h *Harness) {
	ctx := context.Background()
	orphan := logFor(ReviewedCard(domain.ContentTypeFlashcard), domain.GradeGood, base)
	assert.ErrorIs(t, h.Logs.Create(ctx, orphan), store.ErrInvalidEntity)
}
