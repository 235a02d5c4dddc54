package dispatch

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// LimitedExecutor bounds the number of work units in flight on an inner
// executor. Submit blocks while the limit is reached, which gives
// callers natural backpressure against an unbounded inner executor such
// as the goroutine-per-task one.
type LimitedExecutor struct {
	inner Executor
	sem   *semaphore.Weighted
}

// NewLimited wraps inner so that at most n units of work run (or wait in
// the inner executor) concurrently.
func NewLimited(inner Executor, n int64) *LimitedExecutor {
	if n <= 0 {
		panic("dispatch: limit must be positive")
	}
	return &LimitedExecutor{inner: inner, sem: semaphore.NewWeighted(n)}
}

// Submit acquires a slot, then forwards fn to the inner executor. The
// slot is released when fn finishes.
func (l *LimitedExecutor) Submit(fn func()) error {
	if err := l.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}

	err := l.inner.Submit(func() {
		defer l.sem.Release(1)
		fn()
	})
	if err != nil {
		l.sem.Release(1)
	}
	return err
}
