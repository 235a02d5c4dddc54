package flow

import (
	"context"
	"errors"
	"time"
)

// OnStart runs action when a collection starts, before the upstream
// produces anything. The action may emit values; they precede every
// upstream value.
func (f *Flow[T]) OnStart(action func(ctx context.Context, out Collector[T]) error) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		if err := action(ctx, out); err != nil {
			return err
		}
		return f.CollectWith(ctx, out)
	})
}

// OnCompletion runs action when the collection finishes. The action
// receives nil on success (including an early stop requested by
// downstream) and the upstream's error otherwise; it may emit trailing
// values. The original outcome is preserved.
func (f *Flow[T]) OnCompletion(action func(ctx context.Context, out Collector[T], err error) error) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		err := f.CollectWith(ctx, out)

		cause := err
		if stopRequested(cause) {
			cause = nil
		}
		if aerr := action(ctx, out, cause); aerr != nil && err == nil {
			return aerr
		}
		return err
	})
}

// OnEmpty runs action if the collection completes without a single
// emission, letting it supply default values.
func (f *Flow[T]) OnEmpty(action func(ctx context.Context, out Collector[T]) error) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		emitted := false
		err := f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			emitted = true
			return out.Emit(ctx, v)
		}))
		if err != nil || emitted {
			return err
		}
		return action(ctx, out)
	})
}

// Catch intercepts an upstream failure. The handler may emit recovery
// values; its own return value becomes the collection's outcome, so
// returning nil swallows the failure. Downstream stop signals and
// context cancellation are not caught.
func (f *Flow[T]) Catch(handler func(ctx context.Context, out Collector[T], err error) error) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		err := f.CollectWith(ctx, out)
		if err == nil || stopRequested(err) {
			return err
		}
		return handler(ctx, out, err)
	})
}

// Timeout bounds the whole collection to d. If the flow has not
// completed when d elapses, the upstream is cancelled and the
// collection fails with context.DeadlineExceeded.
func (f *Flow[T]) Timeout(d time.Duration) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		err := f.CollectWith(tctx, out)
		if err != nil && tctx.Err() != nil && ctx.Err() == nil && !errors.Is(err, errDone) {
			return context.DeadlineExceeded
		}
		return err
	})
}

// Retry re-runs the upstream from scratch after a failure, up to
// maxRetries additional attempts. Values emitted by a failed attempt
// are not undone; downstream sees them again on the retry.
func (f *Flow[T]) Retry(maxRetries int) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		var err error
		for attempt := 0; attempt <= maxRetries; attempt++ {
			err = f.CollectWith(ctx, out)
			if err == nil || stopRequested(err) {
				return err
			}
		}
		return err
	})
}
