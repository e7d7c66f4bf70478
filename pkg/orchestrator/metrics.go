package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts operations by outcome (ok or an error kind)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikisum_requests_total",
			Help: "Total summarize and chat requests by outcome",
		},
		[]string{"op", "outcome"},
	)

	// RequestDuration tracks successful operation latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikisum_request_duration_seconds",
			Help:    "Successful summarize and chat latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"op"},
	)
)
