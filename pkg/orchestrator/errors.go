package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/wikisum/pkg/cache"
	"github.com/Sternrassler/wikisum/pkg/resolver"
)

// Kind classifies orchestrator failures.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindRateLimited  Kind = "rate_limited"
	KindNotFound     Kind = "not_found"
	KindUpstream     Kind = "upstream"
	KindGeneration   Kind = "generation"
)

// ErrNoSummary is wrapped by chat requests for topics without a live summary.
var ErrNoSummary = errors.New("no summary for this topic, summarize it first")

// ErrRateLimited is wrapped by rejected requests.
var ErrRateLimited = errors.New("rate limit exceeded")

// Error is returned by every orchestrator operation.
type Error struct {
	Kind  Kind
	Op    string
	Query string

	// RetryAfter is set for KindRateLimited
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("%s %q: %s: %v", e.Op, e.Query, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindUpstream for errors the orchestrator
// did not produce.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUpstream
}

// IsRetryable reports whether a request failing with kind may succeed if the
// caller repeats it later. The orchestrator itself never retries.
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindRateLimited, KindUpstream, KindGeneration:
		return true
	default:
		return false
	}
}

func newError(kind Kind, op, query string, err error) *Error {
	return &Error{Kind: kind, Op: op, Query: query, Err: err}
}

// classify wraps an error surfaced by the cache or a collaborator. Context
// errors stay reachable through Unwrap and are reported as upstream.
func classify(op, query string, err error) *Error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}

	var notFound *resolver.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return newError(KindNotFound, op, query, err)
	case errors.Is(err, cache.ErrEmptyKey):
		return newError(KindInvalidInput, op, query, err)
	default:
		return newError(KindUpstream, op, query, err)
	}
}
