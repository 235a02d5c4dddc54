package dispatch

import (
	"github.com/vnykmshr/coflow/pkg/metrics"
)

// InstrumentedExecutor wraps an Executor with Prometheus metrics
// collection: submitted and rejected counters, and a queue depth gauge
// when the inner executor is a PoolExecutor.
type InstrumentedExecutor struct {
	inner    Executor
	name     string
	registry *metrics.Registry
}

// NewInstrumented wraps inner with metrics recorded under the given
// dispatcher name. A nil registry falls back to metrics.DefaultRegistry.
func NewInstrumented(inner Executor, name string, registry *metrics.Registry) *InstrumentedExecutor {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}
	return &InstrumentedExecutor{inner: inner, name: name, registry: registry}
}

// Submit forwards fn to the inner executor and records the outcome.
func (e *InstrumentedExecutor) Submit(fn func()) error {
	err := e.inner.Submit(fn)
	if err != nil {
		e.registry.DispatchRejected.WithLabelValues(e.name).Inc()
		return err
	}

	e.registry.DispatchSubmitted.WithLabelValues(e.name).Inc()
	if p, ok := e.inner.(*PoolExecutor); ok {
		e.registry.DispatchQueueDepth.WithLabelValues(e.name).Set(float64(p.QueueDepth()))
	}
	return nil
}
