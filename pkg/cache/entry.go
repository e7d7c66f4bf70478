package cache

import (
	"time"
)

// Entry represents a cached summary together with its source article.
type Entry struct {
	// Key is the normalized query
	Key string `json:"key"`

	// Query is the query as first seen, before normalization
	Query string `json:"query"`

	// DocumentText is the full article text
	DocumentText string `json:"document_text"`

	// SourceID is the canonical article URL
	SourceID string `json:"source_id"`

	// Method records how the article was resolved (exact or search fallback)
	Method string `json:"method,omitempty"`

	// Summary is the generated summary
	Summary string `json:"summary"`

	// CreatedAt is when the entry was written
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the entry becomes stale
	ExpiresAt time.Time `json:"expires_at"`
}

// Value is what a computation produces for a cache miss.
type Value struct {
	DocumentText string
	SourceID     string
	Method       string
	Summary      string
}

// IsExpired reports whether the entry is stale at now.
func (e *Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
