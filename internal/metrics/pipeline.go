// Package metrics holds the pipeline's Prometheus metrics. Registration is
// explicit (no init()) so tests can opt in once via RegisterPipelineMetrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PageFetchTotal counts Wikipedia page fetches by outcome
	// ("success" / "not_found" / "error").
	PageFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "page_fetch_total",
			Help:      "Total Wikipedia page fetches",
		},
		[]string{"status"},
	)

	// PageCacheTotal counts page cache hits and misses.
	PageCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "page_cache_total",
			Help:      "Page cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	// EmbeddingCacheTotal counts embedding cache hits and misses.
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	// GenerationRequestsTotal counts generation calls by stage and outcome.
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "generation_requests_total",
			Help:      "Total generation requests",
		},
		[]string{"status"}, // "success" / "error"
	)

	// GenerationRequestDuration observes generation call latency.
	GenerationRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "quizgen",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// EmbeddingRequestsTotal counts embedding calls by outcome.
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "embedding_requests_total",
			Help:      "Total embedding requests",
		},
		[]string{"status"}, // "success" / "error"
	)

	// RetryAttemptsTotal counts retry attempts per wrapped operation.
	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "retry_attempts_total",
			Help:      "Retry attempts per operation",
		},
		[]string{"op", "outcome"}, // outcome: "success" / "retry" / "exhausted" / "permanent"
	)

	// StageItemsTotal counts per-stage item outcomes.
	StageItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "stage_items_total",
			Help:      "Items processed per stage",
		},
		[]string{"stage", "status"}, // status: "succeeded" / "skipped"
	)

	// StageDuration observes wall-clock duration per stage.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quizgen",
			Name:      "stage_duration_seconds",
			Help:      "Stage duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"stage"},
	)
)

// RegisterPipelineMetrics registers all pipeline metrics with the default
// registry. Safe to call once from the composition root (or a TestMain).
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		PageFetchTotal,
		PageCacheTotal,
		EmbeddingCacheTotal,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		EmbeddingRequestsTotal,
		RetryAttemptsTotal,
		StageItemsTotal,
		StageDuration,
	)
}
