package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	B24Requests      *prometheus.CounterVec
	B24Latency       *prometheus.HistogramVec
	CatalogRefreshes *prometheus.CounterVec
	CatalogProducts  prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	Errors           *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			B24Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "b24_requests_total",
				Help:      "Total Bitrix24 API requests by method and outcome.",
			}, []string{"method", "status"}),
			B24Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "b24_request_duration_seconds",
				Help:      "Latency distribution for Bitrix24 API calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			CatalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_refreshes_total",
				Help:      "Total product catalog refresh runs by outcome.",
			}, []string{"status"}),
			CatalogProducts: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_products",
				Help:      "Number of products in the last synced snapshot.",
			}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests served by path and status code.",
			}, []string{"path", "status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.B24Requests,
			metricsInstance.B24Latency,
			metricsInstance.CatalogRefreshes,
			metricsInstance.CatalogProducts,
			metricsInstance.HTTPRequests,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
