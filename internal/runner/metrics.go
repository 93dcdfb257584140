package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the run counters exported to Prometheus.
type Metrics struct {
	dispatched prometheus.Counter
	succeeded  prometheus.Counter
	failed     prometheus.Counter
	retried    prometheus.Counter
	duration   prometheus.Histogram
}

// NewMetrics registers the runner metrics on reg. A nil reg uses a private
// registry, which keeps repeated runs in one process from colliding.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "taskgraph",
			Name:      "tasks_dispatched_total",
			Help:      "Tasks handed to a worker.",
		}),
		succeeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "taskgraph",
			Name:      "tasks_succeeded_total",
			Help:      "Tasks that completed and were marked done.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "taskgraph",
			Name:      "tasks_failed_total",
			Help:      "Tasks that exhausted their retry budget.",
		}),
		retried: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "taskgraph",
			Name:      "task_retries_total",
			Help:      "Extra attempts made after a failed attempt.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskgraph",
			Name:      "task_duration_seconds",
			Help:      "Wall time of a task including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}
