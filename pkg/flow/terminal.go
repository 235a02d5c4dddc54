package flow

import (
	"context"
)

// First collects src until the first value arrives, stops the upstream,
// and returns it. Returns ErrEmpty if the flow completes without
// emitting.
func First[T any](ctx context.Context, src *Flow[T]) (T, error) {
	var (
		value T
		found bool
	)
	err := src.Collect(ctx, func(v T) error {
		value = v
		found = true
		return errDone
	})
	if err != nil {
		return value, err
	}
	if !found {
		var zero T
		return zero, ErrEmpty
	}
	return value, nil
}

// ToSlice collects every value of src into a slice.
func ToSlice[T any](ctx context.Context, src *Flow[T]) ([]T, error) {
	var result []T
	err := src.Collect(ctx, func(v T) error {
		result = append(result, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Count collects src and returns the number of values emitted.
func Count[T any](ctx context.Context, src *Flow[T]) (int64, error) {
	var n int64
	err := src.Collect(ctx, func(T) error {
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Reduce combines src's values pairwise, seeding the accumulator with
// the first value. Returns ErrEmpty if the flow completes without
// emitting.
func Reduce[T any](ctx context.Context, src *Flow[T], combine func(a, b T) T) (T, error) {
	var (
		acc   T
		found bool
	)
	err := src.Collect(ctx, func(v T) error {
		if !found {
			acc, found = v, true
			return nil
		}
		acc = combine(acc, v)
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if !found {
		var zero T
		return zero, ErrEmpty
	}
	return acc, nil
}

// Fold collects src, threading an accumulator through every value, and
// returns the final accumulator.
func Fold[T, R any](ctx context.Context, src *Flow[T], initial R, combine func(R, T) R) (R, error) {
	acc := initial
	err := src.Collect(ctx, func(v T) error {
		acc = combine(acc, v)
		return nil
	})
	if err != nil {
		return initial, err
	}
	return acc, nil
}
