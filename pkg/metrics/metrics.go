// Package metrics exposes the Prometheus registry shared by all wikisum
// packages. Metrics are defined in their respective packages (cache,
// ratelimit, wiki, resolver, llm, orchestrator, api) via promauto to
// maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by wikisum.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects everything registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving Gatherer in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}),
	)
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - wikisum_cache_hits_total (Counter): Lookups answered from a live entry
//   - wikisum_cache_misses_total (Counter): Lookups without a live entry
//   - wikisum_cache_shared_total (Counter): Callers that joined an in-flight computation
//   - wikisum_cache_discarded_total (Counter): Results dropped because the cache was cleared
//   - wikisum_cache_compute_errors_total (Counter): Failed computations
//   - wikisum_cache_entries (Gauge): Stored entries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - wikisum_ratelimit_decisions_total{backend, result} (Counter): Allowed and rejected requests
//   - wikisum_ratelimit_identities (Gauge): Tracked identities (memory backend)
//   - wikisum_ratelimit_evictions_total (Counter): Idle identities swept
//   - wikisum_ratelimit_backend_errors_total (Counter): Redis failures
//
// Wikipedia Metrics (pkg/wiki):
//   - wikisum_wiki_requests_total{op, status} (Counter): Requests by operation and HTTP status
//   - wikisum_wiki_request_duration_seconds{op} (Histogram): Request duration
//   - wikisum_wiki_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, protocol)
//   - wikisum_wiki_retries_total{error_class} (Counter): Retry attempts
//   - wikisum_wiki_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - wikisum_wiki_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Resolution Metrics (pkg/resolver):
//   - wikisum_resolutions_total{outcome} (Counter): exact, search_fallback, not_found, upstream_error
//
// Generation Metrics (pkg/llm):
//   - wikisum_generations_total{op, outcome} (Counter): Completions by operation
//   - wikisum_generation_duration_seconds{op} (Histogram): Completion latency
//   - wikisum_generation_tokens_total{op, kind} (Counter): Prompt and completion tokens
//
// Request Metrics (pkg/orchestrator, pkg/api):
//   - wikisum_requests_total{op, outcome} (Counter): Operations by outcome (ok or error kind)
//   - wikisum_request_duration_seconds{op} (Histogram): Operation duration
//   - wikisum_http_requests_total{method, route, status} (Counter): HTTP requests
//   - wikisum_http_request_duration_seconds{method, route} (Histogram): HTTP request duration
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(wikisum_cache_hits_total[5m])) /
//	(sum(rate(wikisum_cache_hits_total[5m])) + sum(rate(wikisum_cache_misses_total[5m])))
//
//	# Rejection Rate
//	sum(rate(wikisum_ratelimit_decisions_total{result="rejected"}[5m]))
//
//	# P95 Summarize Latency
//	histogram_quantile(0.95, rate(wikisum_request_duration_seconds_bucket{op="summarize"}[5m]))
