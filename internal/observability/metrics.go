package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// drought map pipeline.
type Metrics struct {
	PortalRequests        *prometheus.CounterVec   // labels: kind={metadata,drought,boundary}, outcome={success,error}
	PortalRequestDuration *prometheus.HistogramVec // labels: kind
	CacheLookups          *prometheus.CounterVec   // labels: kind={drought,boundary}, result={hit,miss}

	Renders           *prometheus.CounterVec // labels: outcome={success,error}
	RenderDuration    prometheus.Histogram
	ReprojectDuration prometheus.Histogram

	LatestDatasetTimestamp prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PortalRequests,
		m.PortalRequestDuration,
		m.CacheLookups,
		m.Renders,
		m.RenderDuration,
		m.ReprojectDuration,
		m.LatestDatasetTimestamp,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PortalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droughtmap",
			Name:      "portal_requests_total",
			Help:      "USDM portal requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		PortalRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "droughtmap",
			Name:      "portal_request_duration_seconds",
			Help:      "USDM portal request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droughtmap",
			Name:      "cache_lookups_total",
			Help:      "Archive cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droughtmap",
			Name:      "renders_total",
			Help:      "Completed render runs by outcome.",
		}, []string{"outcome"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "droughtmap",
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete fetch-project-compose render run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ReprojectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "droughtmap",
			Name:      "reproject_duration_seconds",
			Help:      "Duration of one shapefile reprojection.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LatestDatasetTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "droughtmap",
			Name:      "latest_dataset_timestamp_seconds",
			Help:      "Release date of the most recently resolved dataset, as a Unix timestamp.",
		}),
	}
}
