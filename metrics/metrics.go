// Package metrics holds the Prometheus collectors of the explorer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceLoads counts underlying source loads by scheme and outcome.
	SourceLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_source_loads_total",
			Help: "Underlying source loads performed, by scheme and outcome",
		},
		[]string{"scheme", "outcome"},
	)

	// LoadDuration tracks how long source loads take.
	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_source_load_seconds",
			Help:    "Duration of source loads",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"scheme"},
	)

	// RowsSkipped counts rows dropped while parsing a source.
	RowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_rows_skipped_total",
		Help: "Source rows skipped because they could not be parsed",
	})

	// CacheRequests counts cache lookups by cache and result (hit, miss, shared).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_cache_requests_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	// CacheResets counts wholesale invalidations.
	CacheResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_cache_resets_total",
			Help: "Wholesale cache invalidations",
		},
		[]string{"cache"},
	)
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Cache result label values.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultShared = "shared"
)
