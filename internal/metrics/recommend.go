package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Response cache and recommendation flow metrics.
var (
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by outcome",
		},
		[]string{"result"}, // "hit" / "miss" / "unavailable" / "corrupt"
	)

	CacheWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_writes_total",
			Help:      "Response cache writes by outcome",
		},
		[]string{"status"}, // "ok" / "error" / "skipped"
	)

	CacheOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "cache_operation_duration_seconds",
			Help:      "Response cache operation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"op"},
	)

	VectorSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "vector_search_duration_seconds",
			Help:      "Vector backend search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"driver", "status"},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by response source",
		},
		[]string{"source"}, // "redis_cache" / "vector_db" / "error"
	)

	SingleflightSharedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "singleflight_shared_total",
			Help:      "Cache misses served by another in-flight computation",
		},
	)
)

var recommendMetricsOnce sync.Once

// RegisterRecommendMetrics registers the recommendation flow metrics. Safe to call more than once.
func RegisterRecommendMetrics() {
	recommendMetricsOnce.Do(func() {
		prometheus.MustRegister(
			CacheLookupsTotal,
			CacheWritesTotal,
			CacheOperationDuration,
			VectorSearchDuration,
			RecommendationsTotal,
			SingleflightSharedTotal,
		)
	})
}
