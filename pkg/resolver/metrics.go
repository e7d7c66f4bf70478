package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ResolutionsTotal counts resolutions by outcome:
// exact, search_fallback, not_found, upstream_error.
var ResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wikisum_resolutions_total",
		Help: "Total number of document resolutions by outcome",
	},
	[]string{"outcome"},
)
