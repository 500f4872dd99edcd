package review

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// Common error types for the review Service
var (
	// ErrUnknownContentType indicates that no card store is configured for the content type.
	ErrUnknownContentType = fmt.Errorf("%w: no store configured", domain.ErrInvalidContentType)

	// ErrInvalidGrade indicates a grade outside again, hard, good and easy.
	ErrInvalidGrade = fmt.Errorf("%w: must be one of again, hard, good, easy", domain.ErrInvalidGrade)

	// ErrInvalidRequest indicates a malformed request such as a missing identifier.
	ErrInvalidRequest = errors.New("invalid review request")

	// ErrCardNotFound indicates that the user has no card for the content.
	ErrCardNotFound = errors.New("memory card not found")

	// ErrConcurrentReview indicates that another review of the same card won the race.
	// The caller may retry.
	ErrConcurrentReview = errors.New("card was reviewed concurrently")

	// ErrCardExists indicates that a card already exists for the content.
	ErrCardExists = errors.New("memory card already exists")
)

// Operation names carried by ServiceError and review.failed events.
const (
	OpPreviewCard        = "preview_card"
	OpReviewCard         = "review_card"
	OpGetDueCards        = "get_due_cards"
	OpCountDueCards      = "count_due_cards"
	OpImportLegacyCard   = "import_legacy_card"
	OpGetReviewHistory   = "get_review_history"
	OpOptimizeParameters = "optimize_parameters"
)

// ServiceError wraps errors from the review service with the operation that failed.
// Use errors.Is against the sentinels above to classify it.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "review_card")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a ServiceError for operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
