package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a beacon payload that is missing or has a malformed required field.
	ErrValidation = errors.New("validation failed")
	// ErrStorage marks a failed read or write against the event store.
	ErrStorage = errors.New("storage failure")
)

// ValidationError names the offending payload field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func missingField(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
