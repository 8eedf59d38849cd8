// Package apperr defines the error taxonomy shared by the account and note layers.
package apperr

import (
	"errors"
	"fmt"
)

// Error classes. Front-ends map these to user-facing responses.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStore        = errors.New("store failure")
)

// Account errors.
var (
	ErrMissingFields   = fmt.Errorf("%w: username and password are required", ErrValidation)
	ErrInvalidPassword = fmt.Errorf("%w: password must have at least 8 characters, including an uppercase letter, a lowercase letter and a digit", ErrValidation)
	ErrUsernameTaken   = fmt.Errorf("%w: username is already taken", ErrConflict)
	ErrAccountNotFound = fmt.Errorf("%w: no registered accounts", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: account does not exist", ErrNotFound)
	ErrWrongPassword   = fmt.Errorf("%w: wrong username or password", ErrUnauthorized)
	ErrNoActiveSession = fmt.Errorf("%w: no active session", ErrUnauthorized)
)

// Note errors.
var (
	ErrEmptyTitle       = fmt.Errorf("%w: note title must not be empty", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: note content must not be empty", ErrValidation)
	ErrNoteNotFound     = fmt.Errorf("%w: note does not exist", ErrNotFound)
	ErrChecksumMismatch = fmt.Errorf("%w: note changed since it was read", ErrConflict)
)

// Store wraps a driver failure so that both ErrStore and the cause match errors.Is.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// known lists the concrete errors whose text is safe to show to users.
var known = []error{
	ErrMissingFields, ErrInvalidPassword, ErrUsernameTaken, ErrAccountNotFound,
	ErrUserNotFound, ErrWrongPassword, ErrNoActiveSession,
	ErrEmptyTitle, ErrEmptyContent, ErrNoteNotFound, ErrChecksumMismatch,
}

// Message returns the user-facing text for err. Store failures and
// unclassified errors get a generic message so driver details stay in logs.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrStore) {
		return "storage error"
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "internal error"
}
