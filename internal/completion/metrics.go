package completion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики для клиента completion API
//
// Метрики позволяют отслеживать:
// - Время выполнения запросов к API
// - Использование токенов (prompt/completion)
// - Retry-попытки

const metricsNamespace = "guidebot"

var (
	// requestDuration измеряет время выполнения запросов.
	// Labels:
	//   - model: название модели
	//   - status: результат (success, error)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "completion",
			Name:      "request_duration_seconds",
			Help:      "Duration of completion API requests in seconds",
			// Buckets для типичных времён генерации: 0.5s - 60s
			Buckets: []float64{0.5, 1, 2, 3, 5, 7, 10, 15, 20, 30, 45, 60},
		},
		[]string{"model", "status"},
	)

	// requestsTotal считает количество запросов.
	// Labels:
	//   - model: название модели
	//   - status: результат (success, error)
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "completion",
			Name:      "requests_total",
			Help:      "Total number of completion API requests",
		},
		[]string{"model", "status"},
	)

	// tokensTotal считает использованные токены.
	// Labels:
	//   - model: название модели
	//   - type: тип токенов (prompt, completion)
	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "completion",
			Name:      "tokens_total",
			Help:      "Total number of tokens used for completion requests",
		},
		[]string{"model", "type"},
	)

	// retriesTotal считает количество retry-попыток.
	// Labels:
	//   - model: название модели
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "completion",
			Name:      "retries_total",
			Help:      "Total number of retry attempts for completion requests",
		},
		[]string{"model"},
	)
)

const (
	statusSuccess   = "success"
	statusError     = "error"
	tokenTypePrompt = "prompt"
	tokenTypeCompl  = "completion"
)

// RecordRequest записывает метрики одного запроса.
func RecordRequest(model string, durationSeconds float64, success bool, promptTokens, completionTokens int) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	requestDuration.WithLabelValues(model, status).Observe(durationSeconds)
	requestsTotal.WithLabelValues(model, status).Inc()

	if success {
		if promptTokens > 0 {
			tokensTotal.WithLabelValues(model, tokenTypePrompt).Add(float64(promptTokens))
		}
		if completionTokens > 0 {
			tokensTotal.WithLabelValues(model, tokenTypeCompl).Add(float64(completionTokens))
		}
	}
}

// RecordRetry записывает retry-попытку.
func RecordRetry(model string) {
	retriesTotal.WithLabelValues(model).Inc()
}
