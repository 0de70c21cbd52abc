package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the status service.
type Metrics struct {
	Requests         *prometheus.CounterVec   // labels: route={report,noscrape,set_pop}, outcome={ok,client_error,upstream_error,conflict}
	UpstreamDuration *prometheus.HistogramVec // labels: source={catalog,live_status,override_store}
	UpstreamErrors   *prometheus.CounterVec   // labels: source
	ResolvedStatuses *prometheus.CounterVec   // labels: status
	OverrideEntries  prometheus.Gauge
	OverrideWrites   prometheus.Counter
	OverrideConflict prometheus.Counter

	// Change event publishing.
	EventsPublished prometheus.Counter
	EventsFailed    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Requests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.ResolvedStatuses,
		m.OverrideEntries,
		m.OverrideWrites,
		m.OverrideConflict,
		m.EventsPublished,
		m.EventsFailed,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pop_status",
			Name:      "requests_total",
			Help:      "Status and override requests by route and outcome.",
		}, []string{"route", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pop_status",
			Name:      "upstream_duration_seconds",
			Help:      "Duration of outbound calls by source.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pop_status",
			Name:      "upstream_errors_total",
			Help:      "Failed outbound calls by source.",
		}, []string{"source"}),
		ResolvedStatuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pop_status",
			Name:      "resolved_statuses_total",
			Help:      "POP statuses emitted in reports, by status string.",
		}, []string{"status"}),
		OverrideEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pop_status",
			Name:      "override_entries",
			Help:      "Number of entries in the override map as last read.",
		}),
		OverrideWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pop_status",
			Name:      "override_writes_total",
			Help:      "Successful override map writes.",
		}),
		OverrideConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pop_status",
			Name:      "override_conflicts_total",
			Help:      "Override writes rejected because the stored map changed after it was read.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pop_status",
			Name:      "override_events_published_total",
			Help:      "Override change events written to Kafka.",
		}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pop_status",
			Name:      "override_events_failed_total",
			Help:      "Override change events that could not be written.",
		}),
	}
}
