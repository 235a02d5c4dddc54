package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/vnykmshr/coflow/pkg/concurrent/dispatch"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

// Filter forwards only values satisfying the predicate. Dropped values
// never reach downstream; no Emit call occurs for them.
func (f *Flow[T]) Filter(predicate func(T) bool) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		return f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			if !predicate(v) {
				return nil
			}
			return out.Emit(ctx, v)
		}))
	})
}

// Map transforms each value of src before forwarding it. A transform
// failure propagates as the collection's failure.
func Map[T, U any](src *Flow[T], transform func(T) (U, error)) *Flow[U] {
	return New(func(ctx context.Context, out Collector[U]) error {
		return src.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			mapped, err := transform(v)
			if err != nil {
				return err
			}
			return out.Emit(ctx, mapped)
		}))
	})
}

// Take forwards the first n values, then stops the upstream production
// without waiting for its natural completion. Take(0) completes
// immediately without starting the upstream.
func (f *Flow[T]) Take(n int) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		if n <= 0 {
			return nil
		}
		remaining := n
		return f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			if err := out.Emit(ctx, v); err != nil {
				return err
			}
			remaining--
			if remaining == 0 {
				return errDone
			}
			return nil
		}))
	})
}

// TakeWhile forwards values while the predicate holds, then stops the
// upstream at the first value that fails it. The failing value is not
// emitted.
func (f *Flow[T]) TakeWhile(predicate func(T) bool) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		return f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			if !predicate(v) {
				return errDone
			}
			return out.Emit(ctx, v)
		}))
	})
}

// Skip drops the first n values and forwards the rest.
func (f *Flow[T]) Skip(n int) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		dropped := 0
		return f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			if dropped < n {
				dropped++
				return nil
			}
			return out.Emit(ctx, v)
		}))
	})
}

// DropWhile drops values while the predicate holds; from the first
// value that fails it onward, everything is forwarded, including values
// the predicate would match again.
func (f *Flow[T]) DropWhile(predicate func(T) bool) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		dropping := true
		return f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			if dropping {
				if predicate(v) {
					return nil
				}
				dropping = false
			}
			return out.Emit(ctx, v)
		}))
	})
}

// Distinct suppresses adjacent duplicates as judged by eq.
func (f *Flow[T]) Distinct(eq func(a, b T) bool) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		var last T
		first := true
		return f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			if !first && eq(last, v) {
				return nil
			}
			first = false
			last = v
			return out.Emit(ctx, v)
		}))
	})
}

// Buffer decouples producer and consumer rates with an n-slot queue:
// the producer suspends only when the queue is full, the consumer only
// when it is empty. Buffer(0) is a direct rendezvous handoff, the one
// place slack-free backpressure is observable end to end.
func (f *Flow[T]) Buffer(capacity int) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		return f.pump(ctx, out, capacity, nil)
	})
}

// FlowOn moves the upstream production onto dispatcher d while the
// downstream collector keeps running where Collect was called. It is a
// single-slot handoff across the dispatcher boundary.
func (f *Flow[T]) FlowOn(d *dispatch.Dispatcher) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		return f.pump(ctx, out, 1, d)
	})
}

// pump runs f's production concurrently with the calling collector,
// handing values over through a queue of the given capacity. With a nil
// dispatcher the producer runs on a plain goroutine; otherwise it is
// submitted to d.
func (f *Flow[T]) pump(ctx context.Context, out Collector[T], capacity int, d *dispatch.Dispatcher) error {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	values := make(chan T, capacity)
	prodErr := make(chan error, 1)

	producer := func() {
		err := f.CollectWith(pctx, CollectorFunc[T](func(_ context.Context, v T) error {
			select {
			case values <- v:
				return nil
			case <-pctx.Done():
				return pctx.Err()
			}
		}))
		prodErr <- err
		close(values)
	}

	if d == nil {
		go producer()
	} else if err := d.Submit(producer); err != nil {
		return fmt.Errorf("flow: upstream dispatcher rejected work: %w", err)
	}

	for v := range values {
		if err := out.Emit(ctx, v); err != nil {
			cancel()
			for range values {
			}
			<-prodErr
			return err
		}
	}
	err := <-prodErr
	if stopRequested(err) && ctx.Err() == nil {
		// Producer stopped because the handoff was torn down, not
		// because this collection failed.
		return nil
	}
	return err
}

// FlatMapLatest starts collecting a new inner flow for each upstream
// value of src. When a new upstream value arrives before the current
// inner flow finishes, the current inner collection is cancelled before
// the new one starts; only values from the most recent inner flow reach
// downstream. Cancellation is cooperative: an inner that never suspends
// always runs to completion, however fast the upstream is.
func FlatMapLatest[T, U any](src *Flow[T], transform func(T) *Flow[U]) *Flow[U] {
	return New(func(ctx context.Context, out Collector[U]) error {
		pctx, cancel := context.WithCancel(ctx)
		defer cancel()

		values := make(chan T)
		upErr := make(chan error, 1)

		go func() {
			err := src.CollectWith(pctx, CollectorFunc[T](func(_ context.Context, v T) error {
				select {
				case values <- v:
					return nil
				case <-pctx.Done():
					return pctx.Err()
				}
			}))
			upErr <- err
			close(values)
		}()

		fail := func(err error) error {
			cancel()
			for range values {
			}
			<-upErr
			return err
		}

		value, ok := <-values
		if !ok {
			return <-upErr
		}

		for {
			// The inner collection runs on this goroutine, so every
			// emission it reaches is delivered; the watcher cancels it
			// only once a later upstream value has actually arrived.
			ictx, icancel := context.WithCancel(ctx)
			innerDone := make(chan struct{})
			watcherDone := make(chan struct{})
			var (
				next    T
				nextOk  bool
				gotNext bool
			)
			go func() {
				defer close(watcherDone)
				select {
				case v, ok := <-values:
					next, nextOk, gotNext = v, ok, true
					if ok {
						icancel()
					}
				case <-innerDone:
				}
			}()

			err := transform(value).CollectWith(ictx, out)
			close(innerDone)
			<-watcherDone
			icancel()

			switch {
			case errors.Is(err, errDone):
				// Downstream asked the whole collection to stop.
				return fail(err)
			case ctx.Err() != nil:
				return fail(ctx.Err())
			case err != nil && !(gotNext && nextOk && errors.Is(err, context.Canceled)):
				return fail(err)
			}

			if gotNext {
				if !nextOk {
					return <-upErr
				}
				value = next
				continue
			}

			value, ok = <-values
			if !ok {
				return <-upErr
			}
		}
	})
}

// Meter instruments the flow with Prometheus metrics under the given
// name: one collections count per Collect call, one emission count per
// value, and an error count for failed collections. A nil registry
// falls back to metrics.DefaultRegistry.
func (f *Flow[T]) Meter(registry *metrics.Registry, name string) *Flow[T] {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}
	return New(func(ctx context.Context, out Collector[T]) error {
		registry.FlowCollections.WithLabelValues(name).Inc()
		err := f.CollectWith(ctx, CollectorFunc[T](func(ctx context.Context, v T) error {
			registry.FlowEmissions.WithLabelValues(name).Inc()
			return out.Emit(ctx, v)
		}))
		if err != nil && !stopRequested(err) {
			registry.FlowErrors.WithLabelValues(name).Inc()
		}
		return err
	})
}
