package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied by NewLimiter when the configuration leaves them unset.
const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
)

// Config holds the rate limiter configuration.
type Config struct {
	// Enabled turns the limiter off when false: every request is allowed
	Enabled bool

	// Limit is the capacity C: accepted requests per identity within Window
	Limit int

	// Window is the trailing window W
	Window time.Duration

	// IdleTimeout is how long an empty window is kept before a sweep evicts
	// it. Defaults to Window.
	IdleTimeout time.Duration

	// Now overrides the clock (for testing)
	Now func() time.Time
}

// Limiter is an in-memory sliding-window limiter keyed by caller identity.
// Checks for different identities never contend on the same lock.
type Limiter struct {
	mu      sync.RWMutex
	windows map[string]*window

	lastSweep atomic.Int64 // unix nanoseconds
	config    Config
	logger    zerolog.Logger
}

// NewLimiter creates a new in-memory limiter.
func NewLimiter(cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = cfg.Window
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Limiter{
		windows: make(map[string]*window),
		config:  cfg,
		logger:  logger,
	}
	l.lastSweep.Store(cfg.Now().UnixNano())
	return l
}

// Allow checks whether identity may make a request now and records it if so.
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	if !l.config.Enabled {
		return Decision{Allowed: true, Remaining: l.config.Limit}, nil
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	now := l.config.Now()
	l.maybeSweep(now)

	for {
		w := l.window(identity)

		w.mu.Lock()
		if w.evicted {
			// Lost a race with Sweep or Reset; the map no longer holds w.
			w.mu.Unlock()
			continue
		}
		decision := w.admit(now, l.config.Limit, l.config.Window)
		w.mu.Unlock()

		recordDecision("memory", decision)
		if !decision.Allowed {
			l.logger.Warn().
				Str("identity", identity).
				Int("limit", l.config.Limit).
				Dur("window", l.config.Window).
				Dur("retry_after", decision.RetryAfter).
				Msg("Rate limit exceeded")
		}
		return decision, nil
	}
}

// window returns the window for identity, creating it if needed.
func (l *Limiter) window(identity string) *window {
	l.mu.RLock()
	w, ok := l.windows[identity]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[identity]; ok {
		return w
	}
	w = &window{}
	l.windows[identity] = w
	RateLimitIdentities.Set(float64(len(l.windows)))
	return w
}

// Reset forgets all recorded requests for identity.
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	if !ok {
		return
	}
	w.mu.Lock()
	w.evicted = true
	w.mu.Unlock()
	delete(l.windows, identity)
	RateLimitIdentities.Set(float64(len(l.windows)))
}

// Sweep evicts idle windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.config.Now()
	l.lastSweep.Store(now.UnixNano())

	l.mu.Lock()
	removed := 0
	for identity, w := range l.windows {
		w.mu.Lock()
		if w.idle(now, l.config.Window, l.config.IdleTimeout) {
			w.evicted = true
			delete(l.windows, identity)
			removed++
		}
		w.mu.Unlock()
	}
	size := len(l.windows)
	l.mu.Unlock()

	RateLimitIdentities.Set(float64(size))
	if removed > 0 {
		RateLimitEvictions.Add(float64(removed))
		l.logger.Debug().Int("evicted", removed).Int("remaining", size).Msg("Evicted idle rate limit windows")
	}
	return removed
}

// maybeSweep runs a sweep from the request path once per idle timeout.
func (l *Limiter) maybeSweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.config.IdleTimeout) {
		return
	}
	if l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		l.Sweep()
	}
}

// Len returns the number of identities currently tracked.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.windows)
}
