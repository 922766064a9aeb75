package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query and document embedding metrics, labelled by provider and model.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "embedding_requests_total",
		Help:      "Embedding API calls by outcome",
	}, []string{"provider", "model", "status"})

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "embedding_request_duration_seconds",
		Help:      "Latency of successful embedding API calls",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4},
	}, []string{"provider", "model"})

	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "embedding_tokens_total",
		Help:      "Tokens billed by the embedding provider",
	}, []string{"provider", "model", "type"})

	EmbeddingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "embedding_errors_total",
		Help:      "Failed embedding API calls by cause",
	}, []string{"provider", "model", "error_type"})

	// EmbeddingCacheTotal has one "result" label: hit or miss.
	EmbeddingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "embedding_cache_total",
		Help:      "Query embedding cache lookups",
	}, []string{"result"})
)

// ObserveEmbedding records one embedding API call. An empty errorType means success.
func ObserveEmbedding(provider, model, errorType string, took time.Duration, promptTokens, totalTokens int) {
	if errorType != "" {
		EmbeddingRequestsTotal.WithLabelValues(provider, model, "error").Inc()
		EmbeddingErrorsTotal.WithLabelValues(provider, model, errorType).Inc()
		return
	}
	EmbeddingRequestsTotal.WithLabelValues(provider, model, "success").Inc()
	EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(took.Seconds())
	if totalTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(totalTokens))
	}
}
