package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks live entries served from memory
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikisum_cache_hits_total",
			Help: "Total number of summary cache hits",
		},
	)

	// CacheMisses tracks lookups that found no live entry
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikisum_cache_misses_total",
			Help: "Total number of summary cache misses",
		},
	)

	// CacheShared tracks callers that received the result of a shared computation
	CacheShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikisum_cache_shared_total",
			Help: "Total number of callers served by a deduplicated in-flight computation",
		},
	)

	// CacheDiscarded tracks results dropped because the cache was cleared mid-flight
	CacheDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikisum_cache_discarded_total",
			Help: "Total number of computed results discarded after a cache clear",
		},
	)

	// CacheComputeErrors tracks failed computations
	CacheComputeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikisum_cache_compute_errors_total",
			Help: "Total number of failed cache computations",
		},
	)

	// CacheEntries tracks stored entries, expired ones included until removed
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wikisum_cache_entries",
			Help: "Current number of entries in the summary cache",
		},
	)
)
