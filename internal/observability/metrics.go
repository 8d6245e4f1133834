package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// publisher and the sync worker.
type Metrics struct {
	EventsPublished *prometheus.CounterVec // labels: kind
	PublishErrors   prometheus.Counter

	EventsConsumed  prometheus.Counter
	HandlerOutcomes *prometheus.CounterVec // labels: outcome={ack,requeue,drop}
	SnapshotUpserts prometheus.Counter
	FetchErrors     prometheus.Counter
	FetchDuration   prometheus.Histogram
	WorkerRunning   prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsPublished,
		m.PublishErrors,
		m.EventsConsumed,
		m.HandlerOutcomes,
		m.SnapshotUpserts,
		m.FetchErrors,
		m.FetchDuration,
		m.WorkerRunning,
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
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "events_published_total",
			Help:      "Domain events published to the work queue, by kind.",
		}, []string{"kind"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "publish_errors_total",
			Help:      "Event publish attempts that failed after a committed store write.",
		}),
		EventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "events_consumed_total",
			Help:      "Messages delivered to the sync worker.",
		}),
		HandlerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "handler_outcomes_total",
			Help:      "Message resolutions by outcome.",
		}, []string{"outcome"}),
		SnapshotUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "snapshot_upserts_total",
			Help:      "Weather snapshots written to the location store.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "fetch_errors_total",
			Help:      "Failed external weather fetches.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_weather",
			Name:      "fetch_duration_seconds",
			Help:      "External weather fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		WorkerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_weather",
			Name:      "worker_running",
			Help:      "1 when the sync worker consumption loop is active, 0 when shut down.",
		}),
	}
}
