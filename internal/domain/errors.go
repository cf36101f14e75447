package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., optimistic locking,
	// or a transaction that kept losing to concurrent writers)
	ErrConflict = errors.New("conflict occurred")

	// ErrHasChildren is returned when deleting a category that still has subcategories
	ErrHasChildren = errors.New("category has subcategories")

	// ErrUnavailable is returned when the backing store cannot be reached
	ErrUnavailable = errors.New("backend unavailable")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

// ValidationError describes which field failed validation and why.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsRetryable reports whether the caller may retry the failed operation as-is
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable)
}
