package scope

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vnykmshr/coflow/pkg/concurrent/dispatch"
	"github.com/vnykmshr/coflow/pkg/concurrent/job"
)

type result[T any] struct {
	value T
	err   error
}

// Deferred is a handle to a computation spawned with Async. The result
// is stored once; awaiting is idempotent and any number of goroutines
// may await concurrently.
type Deferred[T any] struct {
	job  *job.Job
	once sync.Once
	res  result[T]
	done chan struct{}
}

func (d *Deferred[T]) settle(value T, err error) {
	d.once.Do(func() {
		d.res = result[T]{value: value, err: err}
		close(d.done)
	})
}

// Await suspends until the result is produced. It returns ErrCancelled
// if the underlying job was cancelled before producing a value, and the
// context's error if ctx ends first.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.res.value, d.res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Job returns the underlying job handle.
func (d *Deferred[T]) Job() *job.Job { return d.job }

// Cancel cancels the underlying job.
func (d *Deferred[T]) Cancel() { d.job.Cancel() }

// IsCancelled reports whether the underlying job was cancelled.
func (d *Deferred[T]) IsCancelled() bool { return d.job.IsCancelled() }

// Join suspends until the underlying job and its children are terminal.
func (d *Deferred[T]) Join(ctx context.Context) error { return d.job.Join(ctx) }

// Async spawns body as a child job of s on dispatcher d and returns a
// handle immediately, without suspending the caller. Multiple Deferred
// values may be awaited concurrently in any order.
func Async[T any](s *Scope, d *dispatch.Dispatcher, body func(*Scope) (T, error)) *Deferred[T] {
	child := s.child(d)
	def := &Deferred[T]{job: child.job, done: make(chan struct{})}

	s.observeLaunch()
	err := d.Submit(func() {
		start := time.Now()
		var (
			value   T
			bodyErr error
		)
		if child.job.IsCancelled() {
			bodyErr = job.ErrCancelled
		} else {
			value, bodyErr = runBodyValue(child, body)
		}
		child.job.Complete(bodyErr)
		def.settle(value, bodyErr)
		s.observeDone(start, bodyErr)
	})
	if err != nil {
		child.job.Cancel()
		child.job.Complete(job.ErrCancelled)
		var zero T
		def.settle(zero, fmt.Errorf("%w: %v", ErrDispatcherUnavailable, err))
	}

	return def
}

// With executes body under a new child scope bound to dispatcher d while
// the caller suspends. Exactly one outcome is observed: the body's
// result, ErrCancelled if the calling job is cancelled while waiting
// (the child is cancelled too), or ErrDispatcherUnavailable if d could
// not accept the work.
func With[T any](s *Scope, d *dispatch.Dispatcher, body func(*Scope) (T, error)) (T, error) {
	var zero T

	child := s.child(d)
	resCh := make(chan result[T], 1)

	err := d.Submit(func() {
		if child.job.IsCancelled() {
			child.job.Complete(job.ErrCancelled)
			resCh <- result[T]{err: job.ErrCancelled}
			return
		}
		value, bodyErr := runBodyValue(child, body)
		child.job.Complete(bodyErr)
		resCh <- result[T]{value: value, err: bodyErr}
	})
	if err != nil {
		child.job.Cancel()
		child.job.Complete(job.ErrCancelled)
		return zero, fmt.Errorf("%w: %v", ErrDispatcherUnavailable, err)
	}

	select {
	case r := <-resCh:
		return r.value, r.err
	case <-s.job.Token().Done():
		// Cancellation travels into the bridge: the caller was cancelled
		// while suspended, so the child must not keep running.
		child.job.Cancel()
		return zero, job.ErrCancelled
	}
}

// WithTimeout is With bounded by a deadline, implemented as a race
// between the body and a timer-driven cancellation of a wrapping child
// job. On timeout the body's subtree is cancelled cooperatively and the
// caller observes ErrCancelled.
func WithTimeout[T any](s *Scope, d *dispatch.Dispatcher, timeout time.Duration, body func(*Scope) (T, error)) (T, error) {
	wrap := s.child(s.dispatcher)
	timer := time.AfterFunc(timeout, wrap.Cancel)
	defer timer.Stop()

	value, err := With(wrap, d, body)
	wrap.job.Complete(err)
	return value, err
}

func runBodyValue[T any](s *Scope, body func(*Scope) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return body(s)
}
