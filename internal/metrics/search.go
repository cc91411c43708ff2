package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	// SearchStrategyTotal counts which tier of the fallback cascade produced a response.
	SearchStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinemuse",
			Name:      "search_strategy_total",
			Help:      "Responses by operation and the strategy that produced them",
		},
		[]string{"operation", "strategy"}, // memory|similar, fused|cold_start|keyword_fallback|index|cosine|tags|empty
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinemuse",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	ColdStartImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinemuse",
			Name:      "cold_start_imports_total",
			Help:      "External catalog lookups triggered by empty local results",
		},
		[]string{"result"}, // imported, existing, miss, error
	)

	VectorIndexAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cinemuse",
			Name:      "vector_index_available",
			Help:      "1 if the last vector index probe succeeded",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchStrategyTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ColdStartImportsTotal)
	prometheus.MustRegister(VectorIndexAvailable)
	searchMetricsRegistered = true
}
