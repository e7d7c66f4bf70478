package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisum_generations_total",
		Help: "Total chat completions by operation and outcome",
	}, []string{"op", "outcome"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wikisum_generation_duration_seconds",
		Help:    "Chat completion latency in seconds by operation",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"op"})

	GenerationTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikisum_generation_tokens_total",
		Help: "Total tokens reported by the completion API by operation and kind",
	}, []string{"op", "kind"})
)
