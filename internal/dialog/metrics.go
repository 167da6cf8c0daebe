package dialog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики диалогового ядра
//
// Метрики позволяют отслеживать:
// - Распределение интентов
// - Длительность обработки ходов
// - Деградированные ходы (completion недоступен)

const metricsNamespace = "guidebot"

var (
	// turnDuration измеряет время обработки одного хода.
	// Labels:
	//   - intent: классифицированный интент
	//   - status: результат (success, degraded)
	turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "dialog",
			Name:      "turn_duration_seconds",
			Help:      "Duration of chat turn processing in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"intent", "status"},
	)

	// turnsTotal считает обработанные ходы.
	// Labels:
	//   - intent: классифицированный интент
	//   - status: результат (success, degraded)
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dialog",
			Name:      "turns_total",
			Help:      "Total number of processed chat turns",
		},
		[]string{"intent", "status"},
	)

	// degradedTurnsTotal считает ходы, завершившиеся извинением
	// из-за недоступности completion-сервиса.
	degradedTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dialog",
			Name:      "degraded_turns_total",
			Help:      "Total number of turns degraded to an apology reply",
		},
		[]string{"intent"},
	)
)

const (
	statusSuccess  = "success"
	statusDegraded = "degraded"
)

// RecordTurn записывает метрики одного хода.
func RecordTurn(intent string, degraded bool, durationSeconds float64) {
	status := statusSuccess
	if degraded {
		status = statusDegraded
	}
	turnDuration.WithLabelValues(intent, status).Observe(durationSeconds)
	turnsTotal.WithLabelValues(intent, status).Inc()
}

// RecordDegradedTurn записывает деградированный ход.
func RecordDegradedTurn(intent string) {
	degradedTurnsTotal.WithLabelValues(intent).Inc()
}
