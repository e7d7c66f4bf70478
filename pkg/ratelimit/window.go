// Package ratelimit bounds how many requests each caller identity may make
// within a trailing time window.
//
// Two implementations share the same contract: Limiter keeps a timestamp log
// per identity in process memory, RedisLimiter keeps it in a Redis sorted set
// so that several replicas enforce one budget per caller.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	// Allowed reports whether the request was admitted and recorded
	Allowed bool `json:"allowed"`

	// Remaining is the number of further requests admissible right now
	Remaining int `json:"remaining"`

	// RetryAfter is how long until the oldest recorded request leaves the
	// window. Zero when the request was allowed.
	RetryAfter time.Duration `json:"retry_after"`
}

// window is the ordered log of accepted request timestamps for one identity.
type window struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastSeen   time.Time

	// evicted is set under mu when the window has been removed from the
	// limiter's map; holders must retry on a fresh window.
	evicted bool
}

// prune drops timestamps that are no longer inside the window ending at now.
func (w *window) prune(now time.Time, size time.Duration) {
	cut := 0
	for cut < len(w.timestamps) && now.Sub(w.timestamps[cut]) >= size {
		cut++
	}
	if cut > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[cut:]...)
	}
}

// admit prunes the log and records now if fewer than limit timestamps remain.
// Rejected requests are not recorded.
func (w *window) admit(now time.Time, limit int, size time.Duration) Decision {
	w.prune(now, size)
	w.lastSeen = now

	if len(w.timestamps) >= limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.retryAfter(now, size),
		}
	}

	w.timestamps = append(w.timestamps, now)
	return Decision{
		Allowed:   true,
		Remaining: limit - len(w.timestamps),
	}
}

// retryAfter returns the time until the oldest timestamp leaves the window.
func (w *window) retryAfter(now time.Time, size time.Duration) time.Duration {
	if len(w.timestamps) == 0 {
		return 0
	}
	wait := w.timestamps[0].Add(size).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// idle reports whether the window holds nothing and has not been touched
// for at least timeout.
func (w *window) idle(now time.Time, size, timeout time.Duration) bool {
	w.prune(now, size)
	return len(w.timestamps) == 0 && now.Sub(w.lastSeen) >= timeout
}
