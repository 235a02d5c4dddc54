package flow

import (
	"context"
)

// Of creates a flow that emits the given values in order.
func Of[T any](values ...T) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		for _, v := range values {
			if err := out.Emit(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Empty creates a flow that completes without emitting.
func Empty[T any]() *Flow[T] {
	return New(func(context.Context, Collector[T]) error { return nil })
}

// Range creates a flow emitting the integers [from, to).
func Range(from, to int) *Flow[int] {
	return New(func(ctx context.Context, out Collector[int]) error {
		for i := from; i < to; i++ {
			if err := out.Emit(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// FromChannel creates a flow that emits values read from ch until it is
// closed or the collection's context ends. Each collection reads from
// the same channel, so concurrent collections split the values.
func FromChannel[T any](ch <-chan T) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		for {
			select {
			case v, ok := <-ch:
				if !ok {
					return nil
				}
				if err := out.Emit(ctx, v); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// Generate creates a flow from a generator. Each collection calls next
// repeatedly and emits the value while ok is true. The generator is
// invoked once per collection via the factory so that independent
// collections get independent state.
func Generate[T any](factory func() func() (T, bool)) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		next := factory()
		for {
			v, ok := next()
			if !ok {
				return nil
			}
			if err := out.Emit(ctx, v); err != nil {
				return err
			}
		}
	})
}

// Channel creates a flow whose producer runs concurrently with the
// collector, connected by a queue of the given capacity. Unlike New,
// the build function may block independently of the collector; send
// suspends while the queue is full and fails once the collection ends.
func Channel[T any](capacity int, build func(ctx context.Context, send func(T) error) error) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		pctx, cancel := context.WithCancel(ctx)
		defer cancel()

		values := make(chan T, capacity)
		prodErr := make(chan error, 1)

		go func() {
			err := build(pctx, func(v T) error {
				select {
				case values <- v:
					return nil
				case <-pctx.Done():
					return pctx.Err()
				}
			})
			prodErr <- err
			close(values)
		}()

		for v := range values {
			if err := out.Emit(ctx, v); err != nil {
				cancel()
				for range values {
				}
				<-prodErr
				return err
			}
		}
		return <-prodErr
	})
}
