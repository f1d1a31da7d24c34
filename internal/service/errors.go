package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the service layer. Handlers map these onto HTTP
// statuses, so new failure modes should wrap one of them rather than
// introduce a bare error.
var (
	// ErrInvalidInput marks a request the caller can fix: a bad message,
	// a malformed upload, a reload started while one is running.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a missing document, appointment, or notification.
	ErrNotFound = errors.New("not found")
	// ErrExternalService marks a failure in a backing system the service
	// depends on, such as the model API or the vector index.
	ErrExternalService = errors.New("external service error")
)

// ValidationError reports which request field failed validation. It wraps
// ErrInvalidInput so errors.Is still matches the sentinel.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError annotates err with msg, passing nil through unchanged.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
