package scope

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/vnykmshr/coflow/pkg/concurrent/dispatch"
	"github.com/vnykmshr/coflow/pkg/concurrent/job"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

// ErrDispatcherUnavailable is returned when the dispatcher backing a
// launch or await was torn down before it could deliver a result. It is
// a terminal failure of that specific operation, not of the process.
var ErrDispatcherUnavailable = errors.New("dispatcher unavailable")

// Option configures a Scope.
type Option func(*options)

type options struct {
	name     string
	registry *metrics.Registry
}

// WithMetrics records job lifecycle metrics for the scope and all of its
// children under the given scope name. A nil registry falls back to
// metrics.DefaultRegistry.
func WithMetrics(registry *metrics.Registry, name string) Option {
	return func(o *options) {
		if registry == nil {
			registry = metrics.DefaultRegistry
		}
		o.registry = registry
		o.name = name
	}
}

// Scope bundles a dispatcher with a job: where work runs, and who can
// cancel it. Each Launch, Async, or With call creates a child scope, so
// cancellation of a scope reaches everything transitively started
// through it.
type Scope struct {
	dispatcher *dispatch.Dispatcher
	job        *job.Job
	opts       options
}

// New creates a root scope bound to the given dispatcher.
func New(d *dispatch.Dispatcher, opts ...Option) *Scope {
	s := &Scope{dispatcher: d, job: job.New()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// child creates a scope one level down, sharing options, on dispatcher d.
func (s *Scope) child(d *dispatch.Dispatcher) *Scope {
	return &Scope{dispatcher: d, job: job.NewChild(s.job), opts: s.opts}
}

// Dispatcher returns the dispatcher this scope launches work on.
func (s *Scope) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// Job returns the scope's own job.
func (s *Scope) Job() *job.Job { return s.job }

// Context returns a context cancelled when the scope is cancelled. Task
// bodies use it at their suspension points; flows collected with it
// observe job-tree cancellation.
func (s *Scope) Context() context.Context { return s.job.Context() }

// Cancel cancels the scope's job and, transitively, every child.
func (s *Scope) Cancel() { s.job.Cancel() }

// IsCancelled reports whether the scope or an ancestor was cancelled.
func (s *Scope) IsCancelled() bool { return s.job.IsCancelled() }

// Join suspends until the scope's job and all descendants are terminal.
func (s *Scope) Join(ctx context.Context) error { return s.job.Join(ctx) }

// Launch starts body as a child job on the scope's dispatcher and
// returns its handle immediately. A cancelled scope spawns a
// pre-cancelled child whose body never runs. The body's error becomes
// the job's result; it is not escalated into the parent.
func (s *Scope) Launch(body func(*Scope) error) *job.Job {
	child := s.child(s.dispatcher)
	j := child.job

	s.observeLaunch()
	err := s.dispatcher.Submit(func() {
		start := time.Now()
		var bodyErr error
		if j.IsCancelled() {
			bodyErr = job.ErrCancelled
		} else {
			bodyErr = runBody(child, body)
		}
		j.Complete(bodyErr)
		s.observeDone(start, bodyErr)
	})
	if err != nil {
		j.Cancel()
		j.Complete(fmt.Errorf("%w: %v", ErrDispatcherUnavailable, err))
	}

	return j
}

// Run creates a root scope on d, runs fn on the calling goroutine, then
// waits for every transitively launched job to finish. It is the
// structured entry point: when Run returns, nothing it started is still
// running.
func Run(d *dispatch.Dispatcher, fn func(*Scope) error, opts ...Option) error {
	s := New(d, opts...)
	err := runBody(s, fn)
	s.job.Complete(err)
	return s.job.Join(context.Background())
}

// runBody executes body with panic recovery. A panic becomes the job's
// error so the job still reaches a terminal state and releases its
// children.
func runBody(s *Scope, body func(*Scope) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return body(s)
}

func (s *Scope) observeLaunch() {
	if s.opts.registry == nil {
		return
	}
	s.opts.registry.JobsLaunched.WithLabelValues(s.opts.name).Inc()
}

func (s *Scope) observeDone(start time.Time, err error) {
	if s.opts.registry == nil {
		return
	}
	s.opts.registry.JobDuration.WithLabelValues(s.opts.name).Observe(time.Since(start).Seconds())
	if errors.Is(err, job.ErrCancelled) {
		s.opts.registry.JobsCancelled.WithLabelValues(s.opts.name).Inc()
	} else {
		s.opts.registry.JobsCompleted.WithLabelValues(s.opts.name).Inc()
	}
}
