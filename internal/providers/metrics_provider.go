package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"pasosd/internal/structures"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObserveFetchDuration(duration time.Duration)
	IncFetchFailures()
	IncRefreshes(outcome string)
	SetSnapshotEntries(count int)
	SetCatalogEntries(count int)
}

const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
)

type MetricsProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	fetchDuration   prometheus.Histogram
	fetchFailures   prometheus.Counter
	refreshes       *prometheus.CounterVec
	snapshotEntries prometheus.Gauge
	catalogEntries  prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObserveFetchDuration(duration time.Duration) {
	m.fetchDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncFetchFailures() {
	m.fetchFailures.Inc()
}

func (m *MetricsProvider) IncRefreshes(outcome string) {
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) SetSnapshotEntries(count int) {
	m.snapshotEntries.Set(float64(count))
}

func (m *MetricsProvider) SetCatalogEntries(count int) {
	m.catalogEntries.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pasos_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pasos_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pasos_response_cache_hits_total",
			Help: "Total number of encoded response cache hits",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pasos_response_cache_misses_total",
			Help: "Total number of encoded response cache misses",
		}),
		fetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pasos_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream listing fetches in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		fetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pasos_upstream_fetch_failures_total",
			Help: "Total number of failed upstream listing fetches",
		}),
		refreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pasos_snapshot_refreshes_total",
			Help: "Total number of snapshot refreshes by outcome",
		}, []string{"outcome"}),
		snapshotEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pasos_snapshot_entries",
			Help: "Number of crossings in the current snapshot",
		}),
		catalogEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pasos_catalog_entries",
			Help: "Number of crossings in the local catalog",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObserveFetchDuration(_ time.Duration)             {}
func (n *noopMetrics) IncFetchFailures()                                {}
func (n *noopMetrics) IncRefreshes(_ string)                            {}
func (n *noopMetrics) SetSnapshotEntries(_ int)                         {}
func (n *noopMetrics) SetCatalogEntries(_ int)                          {}
