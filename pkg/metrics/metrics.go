package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the ingest pipeline.
type Metrics struct {
	FetchTotal      *prometheus.CounterVec
	FetchErrors     *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	ItemsCollected  *prometheus.GaugeVec
	RefreshTotal    prometheus.Counter
	AlertsEmitted   *prometheus.CounterVec
	SnapshotAge     prometheus.Gauge
	RefreshDuration prometheus.Histogram
}

// New registers and returns the pipeline metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		FetchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intelhub",
			Name:      "collector_fetch_total",
			Help:      "Collector fetch attempts by source.",
		}, []string{"source"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intelhub",
			Name:      "collector_fetch_errors_total",
			Help:      "Collector fetch failures by source.",
		}, []string{"source"}),
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intelhub",
			Name:      "collector_fetch_duration_seconds",
			Help:      "Collector fetch latency by source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		ItemsCollected: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "intelhub",
			Name:      "collector_items",
			Help:      "Items returned by the last fetch per source.",
		}, []string{"source"}),
		RefreshTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "intelhub",
			Name:      "refresh_total",
			Help:      "Completed refresh cycles.",
		}),
		AlertsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intelhub",
			Name:      "alerts_emitted_total",
			Help:      "Alerts emitted by kind.",
		}, []string{"kind"}),
		SnapshotAge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "intelhub",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the most recent snapshot.",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intelhub",
			Name:      "refresh_duration_seconds",
			Help:      "End-to-end refresh cycle latency.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60},
		}),
	}
}

// ObserveFetch records one collector fetch outcome.
func (m *Metrics) ObserveFetch(source string, start time.Time, items int, err error) {
	m.FetchTotal.WithLabelValues(source).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
		return
	}
	m.ItemsCollected.WithLabelValues(source).Set(float64(items))
}
