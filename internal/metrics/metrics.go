// Package metrics holds Prometheus instruments that are used across the
// page manager.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PagesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pages_loaded",
			Help: "Number of page configurations currently cached in memory.",
		})

	PageLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "page_load_total",
			Help: "Cumulative number of page configurations loaded from the store.",
		})

	PageLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "page_load_errors_total",
			Help: "Cumulative number of page load errors.",
		})

	VariantSelectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_variant_selected_total",
			Help: "Requests answered, by page and selected variant.",
		}, []string{"page", "variant"})

	NoVariantTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_no_variant_total",
			Help: "Requests for which no variant was accessible.",
		}, []string{"page"})

	AccessDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_access_denied_total",
			Help: "Requests rejected by page access conditions.",
		}, []string{"page"})
)

func init() {
	prometheus.MustRegister(
		PagesLoaded,
		PageLoadTotal,
		PageLoadErrorsTotal,
		VariantSelectedTotal,
		NoVariantTotal,
		AccessDeniedTotal,
	)
}
