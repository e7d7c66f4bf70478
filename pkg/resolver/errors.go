package resolver

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by ContentSource implementations to signal that a
// title or search produced no document. Any other error is treated as an
// upstream failure.
var ErrNotFound = errors.New("document not found")

// NotFoundError is returned when neither the exact lookup nor the search
// fallback yields a document.
type NotFoundError struct {
	Query string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no document found for %q", e.Query)
}

// Is reports ErrNotFound as a match so callers can use errors.Is.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UpstreamError is returned when the content source fails for any reason
// other than not-found.
type UpstreamError struct {
	// Op is the failing step: "fetch" or "search"
	Op    string
	Query string
	Err   error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("content source %s for %q: %v", e.Op, e.Query, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}
