// Package metrics provides Prometheus instrumentation for coflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for coflow components.
type Registry struct {
	// Job / scope metrics
	JobsLaunched  *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsCancelled *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Dispatcher metrics
	DispatchSubmitted  *prometheus.CounterVec
	DispatchRejected   *prometheus.CounterVec
	DispatchQueueDepth *prometheus.GaugeVec

	// Flow metrics
	FlowCollections *prometheus.CounterVec
	FlowEmissions   *prometheus.CounterVec
	FlowErrors      *prometheus.CounterVec

	// Hot stream metrics
	SharedFlowEmits       *prometheus.CounterVec
	SharedFlowDropped     *prometheus.CounterVec
	SharedFlowSubscribers *prometheus.GaugeVec
}

// DefaultRegistry is the default metrics registry used by coflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		JobsLaunched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "scope",
				Name:      "jobs_launched_total",
				Help:      "Total number of jobs launched",
			},
			[]string{"scope_name"},
		),

		JobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "scope",
				Name:      "jobs_completed_total",
				Help:      "Total number of jobs that completed normally",
			},
			[]string{"scope_name"},
		),

		JobsCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "scope",
				Name:      "jobs_cancelled_total",
				Help:      "Total number of jobs that completed cancelled",
			},
			[]string{"scope_name"},
		),

		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coflow",
				Subsystem: "scope",
				Name:      "job_duration_seconds",
				Help:      "Time spent running job bodies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scope_name"},
		),

		DispatchSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "dispatch",
				Name:      "submitted_total",
				Help:      "Total number of work units submitted to a dispatcher",
			},
			[]string{"dispatcher"},
		),

		DispatchRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "dispatch",
				Name:      "rejected_total",
				Help:      "Total number of work units rejected by a dispatcher",
			},
			[]string{"dispatcher"},
		),

		DispatchQueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coflow",
				Subsystem: "dispatch",
				Name:      "queue_depth",
				Help:      "Number of work units queued and not yet running",
			},
			[]string{"dispatcher"},
		),

		FlowCollections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "flow",
				Name:      "collections_total",
				Help:      "Total number of flow collections started",
			},
			[]string{"flow_name"},
		),

		FlowEmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "flow",
				Name:      "emissions_total",
				Help:      "Total number of values emitted through instrumented flows",
			},
			[]string{"flow_name"},
		),

		FlowErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "flow",
				Name:      "errors_total",
				Help:      "Total number of flow collections that failed",
			},
			[]string{"flow_name"},
		),

		SharedFlowEmits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "sharedflow",
				Name:      "emits_total",
				Help:      "Total number of values written to shared flows",
			},
			[]string{"flow_name"},
		),

		SharedFlowDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "sharedflow",
				Name:      "dropped_total",
				Help:      "Total number of buffered values evicted before a subscriber read them",
			},
			[]string{"flow_name"},
		),

		SharedFlowSubscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coflow",
				Subsystem: "sharedflow",
				Name:      "subscribers",
				Help:      "Number of active shared flow subscribers",
			},
			[]string{"flow_name"},
		),
	}
}
