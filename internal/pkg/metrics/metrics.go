package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexius"

var registry = prometheus.NewRegistry()

var (
	LateFeesApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "licensing",
		Name:      "late_fees_applied_total",
		Help:      "Late fee charges appended to license ledgers.",
	})

	PaymentsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "licensing",
		Name:      "payments_total",
		Help:      "Payments handled by the lifecycle manager, by outcome.",
	}, []string{"outcome"})

	ReadRepairs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "licensing",
		Name:      "read_repairs_total",
		Help:      "Writes triggered by normalization on read, by side effect kind.",
	}, []string{"kind"})

	NotificationJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "jobs_total",
		Help:      "Notification job upserts, by result (created|duplicate).",
	}, []string{"result"})

	NotificationDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "deliveries_total",
		Help:      "Notification delivery attempts, by channel and status.",
	}, []string{"channel", "status"})

	OdooSync = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "odoo",
		Name:      "sync_total",
		Help:      "Payment pushes to Odoo, by outcome (ok|failed|skipped|dropped).",
	}, []string{"outcome"})

	QueueJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobqueue",
		Name:      "jobs_total",
		Help:      "Background jobs, by type and outcome (enqueued|completed|retrying|failed).",
	}, []string{"type", "outcome"})

	OdooSyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "odoo",
		Name:      "sync_duration_seconds",
		Help:      "Latency of payment pushes to Odoo.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
	})
)

func init() {
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		LateFeesApplied,
		PaymentsApplied,
		ReadRepairs,
		NotificationJobs,
		NotificationDeliveries,
		OdooSync,
		OdooSyncDuration,
		QueueJobs,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the service metrics live in.
func Registry() *prometheus.Registry {
	return registry
}
