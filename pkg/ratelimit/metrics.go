package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RateLimitDecisions counts admission checks by backend and result
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikisum_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions",
		},
		[]string{"backend", "result"}, // result: allowed, rejected
	)

	// RateLimitIdentities tracks identities with an in-memory window
	RateLimitIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wikisum_ratelimit_identities",
			Help: "Current number of caller identities tracked in memory",
		},
	)

	// RateLimitEvictions counts idle windows removed by a sweep
	RateLimitEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikisum_ratelimit_evictions_total",
			Help: "Total number of idle rate limit windows evicted",
		},
	)

	// RateLimitBackendErrors counts failed calls to the Redis backend
	RateLimitBackendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikisum_ratelimit_backend_errors_total",
			Help: "Total number of rate limit backend errors",
		},
	)
)

func recordDecision(backend string, d Decision) {
	result := "allowed"
	if !d.Allowed {
		result = "rejected"
	}
	RateLimitDecisions.WithLabelValues(backend, result).Inc()
}
