package flow

import (
	"context"
	"errors"
)

// ErrEmpty is returned by terminal operators that require at least one
// value when the flow completes without emitting any.
var ErrEmpty = errors.New("flow completed without emitting any values")

// errDone is the internal stop signal: a collector returns it from Emit
// to tell the upstream producer to stop early. Collect treats it as
// successful completion. It never escapes the package.
var errDone = errors.New("flow done")

// Collector receives emitted values during one collection. Emit returns
// only after the value has been fully handled downstream; this is the
// backpressure contract: a producer may not emit value n+1 until value
// n's Emit call has returned. A non-nil error tells the producer to stop
// producing and return it unchanged.
type Collector[T any] interface {
	Emit(ctx context.Context, value T) error
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc[T any] func(ctx context.Context, value T) error

// Emit implements Collector.
func (f CollectorFunc[T]) Emit(ctx context.Context, value T) error {
	return f(ctx, value)
}

// Flow is a cold, restartable description of a value-producing process.
// Constructing or composing a Flow performs no work; each Collect call
// is an independent, isolated run, so a Flow value may be shared across
// any number of concurrent collections.
type Flow[T any] struct {
	produce func(ctx context.Context, out Collector[T]) error
}

// New creates a Flow from a producer. The producer must forward every
// error returned by out.Emit immediately, since that is how downstream
// operators stop production early, and should watch ctx at its own
// suspension points.
func New[T any](produce func(ctx context.Context, out Collector[T]) error) *Flow[T] {
	return &Flow[T]{produce: produce}
}

// Collect drives production until the flow completes, invoking onValue
// once per emission in strict emission order, never concurrently, and
// never before the previous call has returned. Completion is silent; an
// error from onValue stops the collection and is returned as its
// failure.
func (f *Flow[T]) Collect(ctx context.Context, onValue func(value T) error) error {
	err := f.produce(ctx, CollectorFunc[T](func(_ context.Context, value T) error {
		return onValue(value)
	}))
	if errors.Is(err, errDone) {
		return nil
	}
	return err
}

// CollectWith drives production into an explicit collector. Used by
// operators that re-emit into a downstream collector.
func (f *Flow[T]) CollectWith(ctx context.Context, out Collector[T]) error {
	return f.produce(ctx, out)
}

// stopRequested reports whether err is the downstream stop signal or a
// context cancellation, as opposed to a real failure.
func stopRequested(err error) bool {
	return errors.Is(err, errDone) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
