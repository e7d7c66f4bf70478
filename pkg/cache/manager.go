package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrEmptyKey indicates the query normalizes to an empty key
	ErrEmptyKey = errors.New("empty cache key")
)

// DefaultTTL is used when Config.TTL is not positive.
const DefaultTTL = time.Hour

// ComputeFunc produces the value for a cache miss. It is invoked at most once
// per key at a time, with a context that is not cancelled by the caller.
type ComputeFunc func(ctx context.Context) (Value, error)

// Config holds the cache manager configuration.
type Config struct {
	// Enabled turns the cache into a pass-through when false:
	// every call computes, nothing is stored, nothing is deduplicated.
	Enabled bool

	// TTL is the lifetime of a written entry
	TTL time.Duration

	// Now overrides the clock (for testing)
	Now func() time.Time
}

// Stats reports cache counters since process start or the last Clear.
type Stats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Shared int64 `json:"shared"`
}

// Manager handles caching of summaries in memory.
// Entries returned by the manager are shared and must not be modified.
type Manager struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	generation uint64

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64

	group  singleflight.Group
	config Config
	logger zerolog.Logger
}

// NewManager creates a new cache manager.
func NewManager(cfg Config, logger zerolog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		entries: make(map[string]*Entry),
		config:  cfg,
		logger:  logger,
	}
}

// Enabled reports whether the manager stores entries.
func (m *Manager) Enabled() bool {
	return m.config.Enabled
}

// TTL returns the configured entry lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Get returns the live entry for query without computing anything.
// An expired entry is removed and reported as a miss.
func (m *Manager) Get(query string) (*Entry, bool) {
	if !m.config.Enabled {
		m.recordMiss()
		return nil, false
	}

	key := NormalizeKey(query)
	now := m.config.Now()

	m.mu.RLock()
	entry, ok := m.entries[key]
	if ok && !entry.IsExpired(now) {
		m.hits.Add(1)
		m.mu.RUnlock()
		CacheHits.Inc()
		m.logger.Debug().Str("key", key).Dur("ttl", entry.TTL(now)).Msg("Cache hit")
		return entry, true
	}
	m.misses.Add(1)
	m.mu.RUnlock()
	CacheMisses.Inc()

	if ok {
		m.removeExpired(key, entry)
		m.logger.Debug().Str("key", key).Msg("Cache entry expired")
	}
	return nil, false
}

// GetOrCompute returns the live entry for query, or computes it with fn.
//
// Concurrent callers for the same key share one computation. A failed
// computation is returned to every waiter and nothing is stored. If ctx ends
// while waiting, GetOrCompute returns ctx.Err() and the computation continues.
func (m *Manager) GetOrCompute(ctx context.Context, query string, fn ComputeFunc) (*Entry, error) {
	key := NormalizeKey(query)
	if key == "" {
		return nil, ErrEmptyKey
	}

	if !m.config.Enabled {
		m.recordMiss()
		value, err := fn(ctx)
		if err != nil {
			CacheComputeErrors.Inc()
			return nil, err
		}
		return m.newEntry(key, query, value), nil
	}

	if entry, ok := m.Get(query); ok {
		return entry, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		return m.compute(ctx, key, query, fn)
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.shared.Add(1)
			CacheShared.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	case <-ctx.Done():
		m.logger.Debug().Str("key", key).Err(ctx.Err()).Msg("Caller detached from in-flight computation")
		return nil, ctx.Err()
	}
}

// compute runs inside the singleflight call for key.
func (m *Manager) compute(ctx context.Context, key, query string, fn ComputeFunc) (*Entry, error) {
	m.mu.RLock()
	generation := m.generation
	existing, ok := m.entries[key]
	m.mu.RUnlock()

	// A flight that finished just before this one started has already
	// written its entry.
	if ok && !existing.IsExpired(m.config.Now()) {
		return existing, nil
	}

	start := time.Now()
	value, err := fn(context.WithoutCancel(ctx))
	if err != nil {
		CacheComputeErrors.Inc()
		m.logger.Debug().Str("key", key).Err(err).Msg("Cache computation failed")
		return nil, err
	}

	entry := m.newEntry(key, query, value)

	m.mu.Lock()
	if m.generation != generation {
		m.mu.Unlock()
		CacheDiscarded.Inc()
		m.logger.Debug().Str("key", key).Msg("Cache cleared during computation, result not stored")
		return entry, nil
	}
	m.entries[key] = entry
	size := len(m.entries)
	m.mu.Unlock()

	CacheEntries.Set(float64(size))
	m.logger.Debug().
		Str("key", key).
		Str("source_id", entry.SourceID).
		Dur("duration", time.Since(start)).
		Dur("ttl", m.config.TTL).
		Msg("Cached summary")

	return entry, nil
}

// Stats returns the current counters and the number of live entries.
func (m *Manager) Stats() Stats {
	now := m.config.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	size := 0
	for _, entry := range m.entries {
		if !entry.IsExpired(now) {
			size++
		}
	}

	return Stats{
		Size:   size,
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Shared: m.shared.Load(),
	}
}

// Clear removes all entries and resets the counters.
// Computations already running are not interrupted, but their results are
// not stored.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*Entry)
	m.generation++
	m.hits.Store(0)
	m.misses.Store(0)
	m.shared.Store(0)
	m.mu.Unlock()

	CacheEntries.Set(0)
	m.logger.Info().Msg("Cache cleared")
}

// Delete removes the entry for query, reporting whether one existed.
func (m *Manager) Delete(query string) bool {
	key := NormalizeKey(query)

	m.mu.Lock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	size := len(m.entries)
	m.mu.Unlock()

	CacheEntries.Set(float64(size))
	return ok
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (m *Manager) PurgeExpired() int {
	now := m.config.Now()

	m.mu.Lock()
	removed := 0
	for key, entry := range m.entries {
		if entry.IsExpired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	size := len(m.entries)
	m.mu.Unlock()

	CacheEntries.Set(float64(size))
	if removed > 0 {
		m.logger.Debug().Int("removed", removed).Msg("Purged expired cache entries")
	}
	return removed
}

// removeExpired deletes key if it still maps to the given expired entry.
func (m *Manager) removeExpired(key string, expired *Entry) {
	m.mu.Lock()
	if current, ok := m.entries[key]; ok && current == expired {
		delete(m.entries, key)
	}
	size := len(m.entries)
	m.mu.Unlock()

	CacheEntries.Set(float64(size))
}

func (m *Manager) recordMiss() {
	m.misses.Add(1)
	CacheMisses.Inc()
}

func (m *Manager) newEntry(key, query string, value Value) *Entry {
	now := m.config.Now()
	return &Entry{
		Key:          key,
		Query:        query,
		DocumentText: value.DocumentText,
		SourceID:     value.SourceID,
		Method:       value.Method,
		Summary:      value.Summary,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.config.TTL),
	}
}
