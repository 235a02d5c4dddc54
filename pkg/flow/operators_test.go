package flow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/coflow/internal/testutil"
	"github.com/vnykmshr/coflow/pkg/concurrent/dispatch"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

func TestFilterMapPipeline(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	evens := Of(1, 2, 3, 4, 5).Filter(func(v int) bool { return v%2 == 0 })
	squares := Map(evens, func(v int) (int, error) { return v * v, nil })

	got, err := ToSlice(ctx, squares)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{4, 16})
}

func TestMapErrorFailsCollection(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	boom := errors.New("boom")
	f := Map(Of(1, 2, 3), func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})

	_, err := ToSlice(ctx, f)
	testutil.AssertErrorIs(t, err, boom)
}

func TestTakeStopsInfiniteProducer(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var produced atomic.Int64
	naturals := New(func(ctx context.Context, out Collector[int]) error {
		for i := 1; ; i++ {
			produced.Add(1)
			if err := out.Emit(ctx, i); err != nil {
				return err
			}
		}
	})

	got, err := ToSlice(ctx, naturals.Take(3))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1, 2, 3})

	// The producer was stopped right at the accepted value, not later.
	testutil.AssertEqual(t, produced.Load(), 3)
}

func TestTakeZeroNeverStartsUpstream(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	started := false
	f := New(func(ctx context.Context, out Collector[int]) error {
		started = true
		return nil
	})

	n, err := Count(ctx, f.Take(0))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, 0)
	testutil.AssertEqual(t, started, false)
}

func TestTakeWhileStopsAtFirstFailingValue(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var produced atomic.Int64
	naturals := New(func(ctx context.Context, out Collector[int]) error {
		for i := 1; ; i++ {
			produced.Add(1)
			if err := out.Emit(ctx, i); err != nil {
				return err
			}
		}
	})

	got, err := ToSlice(ctx, naturals.TakeWhile(func(v int) bool { return v < 4 }))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1, 2, 3})

	// Production stops at the value that failed the predicate; later
	// values matching it again must not revive the flow.
	testutil.AssertEqual(t, produced.Load(), 4)
}

func TestDropWhileForwardsEverythingAfterFirstMiss(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	f := Of(1, 2, 3, 1, 2).DropWhile(func(v int) bool { return v < 3 })

	got, err := ToSlice(ctx, f)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{3, 1, 2})
}

func TestSkip(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	got, err := ToSlice(ctx, Range(0, 6).Skip(4))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{4, 5})
}

func TestDistinctSuppressesAdjacentDuplicates(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	f := Of(1, 1, 2, 2, 2, 1, 3).Distinct(func(a, b int) bool { return a == b })

	got, err := ToSlice(ctx, f)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1, 2, 1, 3})
}

func TestBufferPreservesValuesAndOrder(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	got, err := ToSlice(ctx, Range(0, 100).Buffer(8))
	testutil.AssertNoError(t, err)

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	testutil.AssertSliceEqual(t, got, want)
}

func TestBufferZeroIsRendezvous(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	const handlerDelay = 20 * time.Millisecond

	emitted := make([]time.Time, 0, 3)
	f := New(func(ctx context.Context, out Collector[int]) error {
		for i := 0; i < 3; i++ {
			emitted = append(emitted, time.Now())
			if err := out.Emit(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})

	err := f.Buffer(0).Collect(ctx, func(int) error {
		time.Sleep(handlerDelay)
		return nil
	})
	testutil.AssertNoError(t, err)

	// With no slack the producer cannot hand over value 3 before the
	// consumer has finished value 1, so its emits are paced by the
	// handler. A buffered queue would record all three immediately.
	if gap := emitted[2].Sub(emitted[0]); gap < handlerDelay {
		t.Fatalf("producer ran %v ahead of the rendezvous pace", handlerDelay-gap)
	}
}

func TestTakeThroughBufferStopsProducer(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	naturals := Generate(func() func() (int, bool) {
		n := 0
		return func() (int, bool) {
			n++
			return n, true
		}
	})

	got, err := ToSlice(ctx, naturals.Buffer(4).Take(3))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1, 2, 3})
}

func TestFlowOnMovesProductionToDispatcher(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := dispatch.NewPool(1, 2)
	defer func() { <-p.Shutdown() }()
	d := dispatch.New("flow-upstream", p)

	got, err := ToSlice(ctx, Range(0, 10).FlowOn(d))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
}

func TestFlowOnRejectedDispatcher(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	p := dispatch.NewPool(1, 0)
	<-p.Shutdown()
	d := dispatch.New("down", p)

	_, err := ToSlice(ctx, Range(0, 10).FlowOn(d))
	testutil.AssertErrorIs(t, err, dispatch.ErrShutdown)
}

func TestFlatMapLatestSequential(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	f := FlatMapLatest(Of(1, 2, 3), func(v int) *Flow[int] {
		return Of(v * 10)
	})

	got, err := ToSlice(ctx, f)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{10, 20, 30})
}

func TestFlatMapLatestNonSuspendingInnerRunsToCompletion(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	// Inners that never suspend must deliver every value, no matter how
	// quickly the upstream produces: cancellation is cooperative and
	// takes effect only at suspension points.
	f := FlatMapLatest(Range(0, 50), func(v int) *Flow[int] {
		return Of(v, -v)
	})

	got, err := ToSlice(ctx, f)
	testutil.AssertNoError(t, err)

	want := make([]int, 0, 100)
	for v := 0; v < 50; v++ {
		want = append(want, v, -v)
	}
	testutil.AssertSliceEqual(t, got, want)
}

func TestFlatMapLatestCancelsPreviousInner(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	upstream := Channel(0, func(ctx context.Context, send func(int) error) error {
		if err := send(1); err != nil {
			return err
		}
		// Give the first inner flow time to start waiting.
		time.Sleep(20 * time.Millisecond)
		return send(2)
	})

	f := FlatMapLatest(upstream, func(v int) *Flow[string] {
		return New(func(ctx context.Context, out Collector[string]) error {
			if v == 1 {
				// Slow inner: must be cancelled by the second value.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(testutil.TestTimeout):
					return out.Emit(ctx, "stale")
				}
			}
			return out.Emit(ctx, "fresh")
		})
	})

	got, err := ToSlice(ctx, f)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []string{"fresh"})
}

func TestFlatMapLatestInnerErrorFailsCollection(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	boom := errors.New("boom")
	f := FlatMapLatest(Of(1), func(int) *Flow[int] {
		return New(func(context.Context, Collector[int]) error { return boom })
	})

	_, err := ToSlice(ctx, f)
	testutil.AssertErrorIs(t, err, boom)
}

func TestMeterCountsEmissions(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	registry := metrics.NewRegistry(prometheus.NewRegistry())

	_, err := ToSlice(ctx, Range(0, 5).Meter(registry, "metered"))
	testutil.AssertNoError(t, err)
}
