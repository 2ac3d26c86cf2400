package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval, composition and ingestion metrics.
var (
	// RetrievalTierTotal counts tier visits; outcome is "hit", "empty" or "error".
	RetrievalTierTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_tier_total",
			Help:      "Retrieval tier visits by outcome",
		},
		[]string{"tier", "outcome"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"degraded"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Products returned per query after truncation",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	// ComposeFallbackTotal counts template replies; reason is "disabled", "error" or "empty".
	ComposeFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compose_fallback_total",
			Help:      "Replies built from the deterministic template instead of the summarizer",
		},
		[]string{"reason"},
	)

	// IngestItemsTotal counts uploaded products; status is "ok" or "failed".
	IngestItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_items_total",
			Help:      "Products processed by bulk ingestion",
		},
		[]string{"status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers retrieval metrics. Call once from main (or TestMain).
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		RetrievalTierTotal,
		RetrievalDuration,
		RetrievalResults,
		ComposeFallbackTotal,
		IngestItemsTotal,
	)
	searchMetricsRegistered = true
}
