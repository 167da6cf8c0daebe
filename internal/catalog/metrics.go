package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "guidebot"

var (
	catalogCategories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "catalog",
			Name:      "categories",
			Help:      "Number of categories in the loaded badge directory",
		},
	)
	catalogBadges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "catalog",
			Name:      "badges",
			Help:      "Number of badges in the loaded badge directory",
		},
	)
)

// RecordCatalogLoaded updates the catalog size gauges after a successful load.
func RecordCatalogLoaded(categories, badges int) {
	catalogCategories.Set(float64(categories))
	catalogBadges.Set(float64(badges))
}
