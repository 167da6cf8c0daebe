package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики HTTP сервера
//
// Метрики позволяют отслеживать:
// - Время выполнения запросов по каждому endpoint
// - Количество запросов по endpoint/method/status

var (
	// httpRequestDuration измеряет время обработки запроса.
	// Labels:
	//   - handler: имя endpoint'а (chat, categories, badge, etc.)
	//   - method: HTTP метод (GET, POST)
	//   - status: HTTP status code (200, 404, 500)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			// Чат-запрос включает вызов LLM, поэтому корзины до 10s
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"handler", "method", "status"},
	)

	// httpRequestsTotal считает запросы с теми же labels.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// instrumentHandler записывает длительность и счётчик запросов,
// name попадает в label handler.
func instrumentHandler(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		httpRequestDuration.WithLabelValues(name, r.Method, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(name, r.Method, status).Inc()
	}
}
