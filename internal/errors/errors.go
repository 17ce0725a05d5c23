// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Application error kinds. Services return these; the API layer maps
// them to HTTP responses in one place (see Map).
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream unavailable")

	// ErrInvalidCredentials is the generic login failure. It must not
	// reveal whether the account exists or which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries a human-readable message for a 400 response.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalid creates a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// QuotaError is returned when a gated feature is over its tier limit.
// It carries the structured upgrade-prompt payload the client renders.
type QuotaError struct {
	Feature string
	Limit   int
	Used    int
	Tier    string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s limit reached (%d/%d, tier %s)", e.Feature, e.Used, e.Limit, e.Tier)
}

// LockedError signals a temporarily locked login identity. The message
// shown to the caller stays generic so account existence never leaks.
type LockedError struct {
	RetryAfter int // seconds
}

func (e *LockedError) Error() string { return "temporarily locked" }

// NotFound wraps ErrNotFound with context.
func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// Forbidden wraps ErrForbidden with context.
func Forbidden(what string) error {
	return fmt.Errorf("%s: %w", what, ErrForbidden)
}
