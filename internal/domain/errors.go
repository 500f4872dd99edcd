package domain

import "errors"

// Validation errors shared by the domain types.
var (
	// ErrInvalidGrade is returned when a grade is outside AGAIN..EASY.
	ErrInvalidGrade = errors.New("invalid grade")

	// ErrInvalidCardState is returned when a card state is not one of the known lifecycle states.
	ErrInvalidCardState = errors.New("invalid card state")

	// ErrInvalidContentType is returned when a content type is not recognized.
	ErrInvalidContentType = errors.New("invalid content type")
)
