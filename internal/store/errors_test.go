package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", fmt.Errorf("failed to do something: %w", ErrNotFound), true},
		{"ErrMemoryCardNotFound", ErrMemoryCardNotFound, true},
		{"wrapped ErrReviewLogNotFound", fmt.Errorf("lookup: %w", ErrReviewLogNotFound), true},
		{"store error wrapping not found", NewStoreError("memory_card", "get", "missing", ErrMemoryCardNotFound), true},
		{"ErrDuplicate", ErrDuplicate, false},
		{"ErrVersionConflict", ErrVersionConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDuplicateError(ErrDuplicate))
	assert.True(t, IsDuplicateError(ErrMemoryCardExists))
	assert.True(t, IsDuplicateError(fmt.Errorf("create: %w", ErrMemoryCardExists)))
	assert.False(t, IsDuplicateError(ErrNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestEntitySpecificErrors(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ErrMemoryCardNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrReviewLogNotFound, ErrNotFound)
	assert.NotErrorIs(t, ErrMemoryCardNotFound, ErrReviewLogNotFound)
	assert.Equal(t, "entity not found: memory card", ErrMemoryCardNotFound.Error())
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	t.Run("with wrapped error", func(t *testing.T) {
		t.Parallel()
		err := NewStoreError("memory_card", "update", "stale snapshot", ErrVersionConflict)

		assert.Equal(t, "update operation on memory_card failed: stale snapshot: version conflict", err.Error())
		assert.ErrorIs(t, err, ErrVersionConflict)

		var storeErr *StoreError
		wrapped := fmt.Errorf("service: %w", err)
		assert.ErrorAs(t, wrapped, &storeErr)
		assert.Equal(t, "memory_card", storeErr.Entity)
		assert.Equal(t, "update", storeErr.Operation)
	})

	t.Run("without wrapped error", func(t *testing.T) {
		t.Parallel()
		err := NewStoreError("review_log", "create", "no rows written", nil)

		assert.Equal(t, "create operation on review_log failed: no rows written", err.Error())
		assert.Nil(t, err.Unwrap())
	})
}
