package flow

import (
	"context"
	"sync"
)

// Concat emits every value of f, then every value of next.
func (f *Flow[T]) Concat(next *Flow[T]) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		if err := f.CollectWith(ctx, out); err != nil {
			return err
		}
		return next.CollectWith(ctx, out)
	})
}

// StartWith emits the given values before the upstream's.
func (f *Flow[T]) StartWith(values ...T) *Flow[T] {
	return Of(values...).Concat(f)
}

// Zip pairs values from a and b one-to-one and emits the combination.
// The zipped flow completes as soon as either source completes.
func Zip[A, B, R any](a *Flow[A], b *Flow[B], combine func(A, B) R) *Flow[R] {
	return New(func(ctx context.Context, out Collector[R]) error {
		pctx, cancel := context.WithCancel(ctx)
		defer cancel()

		as, aErr := pumpInto(pctx, a)
		bs, bErr := pumpInto(pctx, b)

		finish := func() (error, error) {
			cancel()
			for range as {
			}
			for range bs {
			}
			return <-aErr, <-bErr
		}

		for {
			av, ok := <-as
			if !ok {
				break
			}
			bv, ok := <-bs
			if !ok {
				break
			}
			if err := out.Emit(ctx, combine(av, bv)); err != nil {
				finish()
				return err
			}
		}

		ea, eb := finish()
		if ea != nil && !stopRequested(ea) {
			return ea
		}
		if eb != nil && !stopRequested(eb) {
			return eb
		}
		return ctx.Err()
	})
}

// Combine emits the combination of the latest values of a and b each
// time either emits, once both have produced at least one value. It
// completes when both sources have completed.
func Combine[A, B, R any](a *Flow[A], b *Flow[B], combine func(A, B) R) *Flow[R] {
	return New(func(ctx context.Context, out Collector[R]) error {
		pctx, cancel := context.WithCancel(ctx)
		defer cancel()

		as, aErr := pumpInto(pctx, a)
		bs, bErr := pumpInto(pctx, b)

		finish := func() (error, error) {
			cancel()
			for as != nil || bs != nil {
				select {
				case _, ok := <-as:
					if !ok {
						as = nil
					}
				case _, ok := <-bs:
					if !ok {
						bs = nil
					}
				}
			}
			return <-aErr, <-bErr
		}

		var (
			latestA A
			latestB B
			haveA   bool
			haveB   bool
		)

		for as != nil || bs != nil {
			select {
			case v, ok := <-as:
				if !ok {
					as = nil
					continue
				}
				latestA, haveA = v, true
			case v, ok := <-bs:
				if !ok {
					bs = nil
					continue
				}
				latestB, haveB = v, true
			}

			if haveA && haveB {
				if err := out.Emit(ctx, combine(latestA, latestB)); err != nil {
					finish()
					return err
				}
			}
		}

		ea, eb := finish()
		if ea != nil && !stopRequested(ea) {
			return ea
		}
		if eb != nil && !stopRequested(eb) {
			return eb
		}
		return ctx.Err()
	})
}

// Merge interleaves the values of all sources into one flow, preserving
// each source's own order. It completes when every source has completed
// and fails fast on the first source failure.
func Merge[T any](sources ...*Flow[T]) *Flow[T] {
	return New(func(ctx context.Context, out Collector[T]) error {
		pctx, cancel := context.WithCancel(ctx)
		defer cancel()

		values := make(chan T)

		var (
			mu       sync.Mutex
			firstErr error
		)
		fail := func(err error) {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			// Tear down the siblings so the failure surfaces even while
			// other sources are still producing.
			cancel()
		}

		var wg sync.WaitGroup
		wg.Add(len(sources))
		for _, src := range sources {
			go func(f *Flow[T]) {
				defer wg.Done()
				err := f.CollectWith(pctx, CollectorFunc[T](func(_ context.Context, v T) error {
					select {
					case values <- v:
						return nil
					case <-pctx.Done():
						return pctx.Err()
					}
				}))
				if err != nil && !stopRequested(err) {
					fail(err)
				}
			}(src)
		}
		go func() {
			wg.Wait()
			close(values)
		}()

		for v := range values {
			if err := out.Emit(ctx, v); err != nil {
				cancel()
				for range values {
				}
				return err
			}
		}

		mu.Lock()
		err := firstErr
		mu.Unlock()
		if err != nil {
			return err
		}
		return ctx.Err()
	})
}

// pumpInto runs src's production on its own goroutine, forwarding values
// through an unbuffered channel. The error channel holds the
// production's outcome; the value channel is closed afterwards.
func pumpInto[T any](ctx context.Context, src *Flow[T]) (<-chan T, <-chan error) {
	values := make(chan T)
	errCh := make(chan error, 1)

	go func() {
		err := src.CollectWith(ctx, CollectorFunc[T](func(_ context.Context, v T) error {
			select {
			case values <- v:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))
		errCh <- err
		close(values)
	}()

	return values, errCh
}
