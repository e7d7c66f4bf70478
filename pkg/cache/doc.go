// Package cache provides the in-memory result cache for article summaries.
//
// The cache manager maps a normalized query to the resolved article and its
// summary with the following features:
//
// - Case-insensitive, trimmed keys (see NormalizeKey)
// - TTL expiry checked lazily on read
// - At most one in-flight computation per key (singleflight); concurrent
//   callers for the same key share its outcome
// - Failed computations are never stored and never retried internally
// - Clear drops entries and counters; computations running across a Clear
//   still answer their waiters but are not written
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.Config{Enabled: true, TTL: time.Hour}, logger)
//
//	entry, err := manager.GetOrCompute(ctx, "Machine Learning", func(ctx context.Context) (cache.Value, error) {
//		// Resolve the article and summarize it
//		return cache.Value{DocumentText: text, SourceID: url, Summary: summary}, nil
//	})
//
// # Lookups Without Computing
//
//	if entry, ok := manager.Get("machine learning"); ok {
//		// Live entry
//	}
//
// # Cancellation
//
// A caller whose context ends while waiting on an in-flight computation
// returns ctx.Err(). The computation itself runs detached from that context
// and still fills the cache for everyone else.
//
// # Metrics
//
//   - wikisum_cache_hits_total - Live entries served
//   - wikisum_cache_misses_total - Lookups without a live entry
//   - wikisum_cache_shared_total - Callers that joined an in-flight computation
//   - wikisum_cache_discarded_total - Results dropped because of a Clear
//   - wikisum_cache_compute_errors_total - Failed computations
//   - wikisum_cache_entries - Stored entries
package cache
