package wiki

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for Wikipedia client operations.
var (
	WikiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisum_wiki_requests_total",
		Help: "Total Wikipedia requests by operation and status",
	}, []string{"op", "status"})

	WikiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wikisum_wiki_request_duration_seconds",
		Help:    "Wikipedia request duration in seconds by operation",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})

	WikiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisum_wiki_errors_total",
		Help: "Total Wikipedia errors by class",
	}, []string{"class"})

	WikiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisum_wiki_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	WikiRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wikisum_wiki_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	WikiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisum_wiki_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)
