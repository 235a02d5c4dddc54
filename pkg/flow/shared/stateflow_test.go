package shared

import (
	"context"
	"testing"

	"github.com/vnykmshr/coflow/internal/testutil"
)

func TestStateFlowGetSet(t *testing.T) {
	st := NewStateFlow(10)
	testutil.AssertEqual(t, st.Get(), 10)

	st.Set(20)
	testutil.AssertEqual(t, st.Get(), 20)
}

func TestStateFlowSubscriberGetsCurrentValueImmediately(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	st := NewStateFlow("initial")

	var got []string
	err := st.AsFlow().Take(1).Collect(ctx, func(v string) error {
		got = append(got, v)
		return nil
	})

	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []string{"initial"})
}

func TestStateFlowDeliversChanges(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	st := NewStateFlow(0)

	var got []int
	err := st.AsFlow().Take(3).Collect(ctx, func(v int) error {
		got = append(got, v)
		// Drive the next transition from inside the handler so every
		// version is observed.
		if v < 2 {
			st.Set(v + 1)
		}
		return nil
	})

	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{0, 1, 2})
}

func TestStateFlowSuppressesEqualValues(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	st := NewStateFlow(1)

	var got []int
	err := st.AsFlow().Take(2).Collect(ctx, func(v int) error {
		got = append(got, v)
		if len(got) == 1 {
			st.Set(1) // equal, must not be delivered
			st.Set(2)
		}
		return nil
	})

	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1, 2})
}

func TestStateFlowLateSubscriberSeesOnlyCurrent(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	st := NewStateFlow(1)
	st.Set(2)
	st.Set(3)

	var got []int
	err := st.AsFlow().Take(1).Collect(ctx, func(v int) error {
		got = append(got, v)
		return nil
	})

	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{3})
}

func TestStateFlowConflatesWhileSubscriberBusy(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	st := NewStateFlow(0)

	var got []int
	err := st.AsFlow().Take(2).Collect(ctx, func(v int) error {
		got = append(got, v)
		if v == 0 {
			// Burst of transitions while the subscriber is inside the
			// handler: only the final value must arrive.
			for n := 1; n <= 100; n++ {
				st.Set(n)
			}
		}
		return nil
	})

	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{0, 100})
}

func TestStateFlowChangeAndChangeBackSuppressed(t *testing.T) {
	st := NewStateFlow("a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- st.AsFlow().Collect(ctx, func(v string) error {
			got = append(got, v)
			if len(got) == 1 {
				close(started)
			}
			if v == "done" {
				cancel()
			}
			return nil
		})
	}()

	<-started
	st.Set("b")
	st.Set("a")
	st.Set("done")

	testutil.AssertErrorIs(t, <-done, context.Canceled)

	// First value is the initial one, last is the final state; "a" is
	// never delivered twice in a row.
	testutil.AssertEqual(t, got[0], "a")
	testutil.AssertEqual(t, got[len(got)-1], "done")
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("duplicate consecutive value %q in %v", got[i], got)
		}
	}
}

func TestStateFlowCustomEquality(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	type point struct{ x, y int }
	// Only x identifies a state change.
	st := NewStateFlowWithEquality(point{1, 1}, func(a, b point) bool { return a.x == b.x })

	var got []point
	err := st.AsFlow().Take(2).Collect(ctx, func(v point) error {
		got = append(got, v)
		if len(got) == 1 {
			st.Set(point{1, 99}) // same x: suppressed
			st.Set(point{2, 0})
		}
		return nil
	})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got[1].x, 2)
}
