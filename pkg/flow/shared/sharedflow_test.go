package shared

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/coflow/internal/testutil"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

func TestSharedFlowDeliversToActiveSubscriber(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	sf := NewSharedFlow[int](4, 0)

	got := make(chan int, 3)
	subscribed := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)
	go func() {
		done <- sf.AsFlow().Take(3).Collect(ctx, func(v int) error {
			once.Do(func() { close(subscribed) })
			got <- v
			return nil
		})
	}()

	// No subscriber position to signal on before the first value, so
	// emit until the subscription observes one.
	sf.Emit(1)
	testutil.Eventually(t, testutil.TestTimeout, func() bool {
		select {
		case <-subscribed:
			return true
		default:
			sf.Emit(1)
			return false
		}
	})
	sf.Emit(2)
	sf.Emit(3)

	testutil.AssertNoError(t, <-done)
}

func TestSharedFlowNoReplayMeansNoHistory(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	sf := NewSharedFlow[int](2, 0)
	sf.Emit(1)
	sf.Emit(2)

	collectCtx, stop := context.WithCancel(ctx)
	var got []int
	done := make(chan error, 1)
	go func() {
		done <- sf.AsFlow().Collect(collectCtx, func(v int) error {
			got = append(got, v)
			return nil
		})
	}()

	testutil.Eventually(t, testutil.TestTimeout, func() bool {
		return sf.SubscriberCount() == 1
	})
	stop()
	testutil.AssertErrorIs(t, <-done, context.Canceled)
	testutil.AssertEqual(t, len(got), 0)
}

func TestSharedFlowReplayDeliversRecentValues(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	sf := NewSharedFlow[int](4, 2)
	for v := 1; v <= 5; v++ {
		sf.Emit(v)
	}

	got, err := toSliceN(ctx, sf, 2)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{4, 5})
}

func TestSharedFlowReplayShorterHistory(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	sf := NewSharedFlow[int](8, 4)
	sf.Emit(1)

	got, err := toSliceN(ctx, sf, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1})
}

func TestSharedFlowEvictsOldestWhenFull(t *testing.T) {
	var dropped []int
	cfg := DefaultConfig[int]()
	cfg.Capacity = 2
	cfg.Replay = 2
	cfg.OnDrop = func(v int) { dropped = append(dropped, v) }
	sf := NewSharedFlowWithConfig(cfg)

	for v := 1; v <= 5; v++ {
		sf.Emit(v)
	}

	testutil.AssertSliceEqual(t, dropped, []int{1, 2, 3})
}

func TestSharedFlowSlowSubscriberSkipsEvicted(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	sf := NewSharedFlow[int](2, 2)
	sf.Emit(1)

	f := sf.AsFlow()
	var got []int
	err := f.Take(3).Collect(ctx, func(v int) error {
		if v == 1 {
			// Overrun the ring while this subscriber is busy.
			for n := 2; n <= 10; n++ {
				sf.Emit(n)
			}
		}
		got = append(got, v)
		return nil
	})

	testutil.AssertNoError(t, err)
	// Values 2..8 were evicted unread; the subscriber lands on the
	// oldest still buffered.
	testutil.AssertSliceEqual(t, got, []int{1, 9, 10})
}

func TestSharedFlowMulticastsToAllSubscribers(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	sf := NewSharedFlow[int](8, 3)
	sf.Emit(1)
	sf.Emit(2)
	sf.Emit(3)

	var wg sync.WaitGroup
	results := make([][]int, 3)
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = toSliceN(ctx, sf, 3)
		}(i)
	}
	wg.Wait()

	for i := range results {
		testutil.AssertNoError(t, errs[i])
		testutil.AssertSliceEqual(t, results[i], []int{1, 2, 3})
	}
}

func TestSharedFlowSubscriberCount(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	sf := NewSharedFlow[int](4, 0)
	testutil.AssertEqual(t, sf.SubscriberCount(), 0)

	subCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- sf.AsFlow().Collect(subCtx, func(int) error { return nil })
	}()

	testutil.Eventually(t, testutil.TestTimeout, func() bool {
		return sf.SubscriberCount() == 1
	})
	stop()
	<-done
	testutil.AssertEqual(t, sf.SubscriberCount(), 0)
}

func TestSharedFlowConfigValidation(t *testing.T) {
	for name, cfg := range map[string]Config[int]{
		"zero capacity":    {Capacity: 0},
		"negative replay":  {Capacity: 4, Replay: -1},
		"replay too large": {Capacity: 2, Replay: 3},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic", name)
				}
			}()
			NewSharedFlowWithConfig(cfg)
		}()
	}
}

func TestSharedFlowMetrics(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	cfg := DefaultConfig[int]()
	cfg.Capacity = 1
	cfg.Replay = 1
	cfg.Name = "metered"
	cfg.Metrics = registry
	sf := NewSharedFlowWithConfig(cfg)

	sf.Emit(1)
	sf.Emit(2) // evicts 1

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	got, err := toSliceN(ctx, sf, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{2})
}

// toSliceN collects exactly n values from a hot flow.
func toSliceN(ctx context.Context, sf *SharedFlow[int], n int) ([]int, error) {
	var got []int
	err := sf.AsFlow().Take(n).Collect(ctx, func(v int) error {
		got = append(got, v)
		return nil
	})
	return got, err
}
