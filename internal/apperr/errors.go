// Package apperr defines the error taxonomy shared by all services.
// The HTTP layer maps these to status codes; everything else is a 500.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation error")

	// ErrAuthorization marks ownership/role/permission failures.
	ErrAuthorization = errors.New("authorization error")

	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a unique-key collision (permit number, schedule version).
	ErrConflict = errors.New("conflict")

	// ErrState marks an operation invalid for the current status, such as
	// editing a submitted permit or re-linking a used issue card.
	ErrState = errors.New("invalid state")
)

// Validation returns a formatted validation error.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authorization returns a formatted authorization error. The message is kept
// generic so unauthorized callers learn nothing about the resource.
func Authorization(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// NotFound returns a formatted not-found error.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflict returns a formatted conflict error.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// State returns a formatted invalid-state error.
func State(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsAuthorization reports whether err is an authorization error.
func IsAuthorization(err error) bool { return errors.Is(err, ErrAuthorization) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsState reports whether err is an invalid-state error.
func IsState(err error) bool { return errors.Is(err, ErrState) }
