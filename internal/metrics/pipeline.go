package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every cospa metric.
const Namespace = "cospa"

// Retrieval, quota, generation and event metrics.
var (
	RetrievalFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_failures_total",
			Help:      "Venue searches degraded to an empty result",
		},
	)

	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quota_rejections_total",
			Help:      "Requests rejected by a conversation or message cap",
		},
		[]string{"kind"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of chat generation requests",
		},
		[]string{"provider", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_request_duration_seconds",
			Help:      "Chat generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"provider"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_tokens_total",
			Help:      "Chat generation tokens consumed",
		},
		[]string{"provider", "type"}, // "input" / "output"
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_published_total",
			Help:      "Turn events published to the message bus",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register registers the embedding and pipeline metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			RetrievalFailuresTotal,
			QuotaRejectionsTotal,
			GenerationRequestsTotal,
			GenerationRequestDuration,
			GenerationTokensTotal,
			EventsPublishedTotal,
		)
	})
}
