// Package services defines the business logic for overlay content: the
// repository of content entries with its audit trail, inheritance
// resolution, compilation into the vector index, and semantic search.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed create or update input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates that the requested entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrForbidden is returned when a hard delete is attempted without the
	// exact confirmation token. Nothing is changed.
	ErrForbidden = errors.New("confirmation token mismatch")

	// ErrAlreadySuperseded is returned when superseding an entry that already
	// points at a successor.
	ErrAlreadySuperseded = errors.New("entry already superseded")

	// ErrInvalidTransition is returned for a status change outside
	// draft->active, draft->deprecated, and active->deprecated.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError names the offending field. It matches ErrValidation and,
// when set, the more specific cause in Err.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap exposes ErrValidation and the optional cause to errors.Is/As.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
