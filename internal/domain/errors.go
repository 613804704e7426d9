package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed query request (rejected before any backend call).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBackendUnavailable signals an unreachable or timed-out store or index. Retryable.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrDocumentInvalid signals an entity that cannot be projected into an index document.
	ErrDocumentInvalid = errors.New("document invalid")
)

// InputError names the request field and the constraint it violated.
type InputError struct {
	Field      string
	Constraint string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput.Error(), e.Constraint)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput.Error(), e.Field, e.Constraint)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// NewInputError creates an InputError with a formatted constraint message.
func NewInputError(field, format string, args ...any) error {
	return &InputError{Field: field, Constraint: fmt.Sprintf(format, args...)}
}

// Unavailable wraps err as ErrBackendUnavailable, keeping the cause in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}
