package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "guidebot"

var (
	contextSavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "storage",
			Name:      "context_saves_total",
			Help:      "Total number of user context records written",
		},
	)
	messageAppendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "storage",
			Name:      "message_appends_total",
			Help:      "Total number of messages appended to conversation histories",
		},
	)
	malformedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "storage",
			Name:      "malformed_records_total",
			Help:      "Total number of persisted records skipped on load because they failed to parse",
		},
		[]string{"kind"},
	)
)

func RecordContextSave()   { contextSavesTotal.Inc() }
func RecordMessageAppend() { messageAppendsTotal.Inc() }

func RecordMalformedRecord(kind string) {
	malformedRecordsTotal.WithLabelValues(kind).Inc()
}
