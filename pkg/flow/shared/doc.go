// Package shared implements hot streams: values exist independently of
// any subscriber, and subscribers observe whatever is emitted while
// they are attached.
//
// SharedFlow multicasts every emission to all current subscribers
// through a bounded ring buffer with optional replay for late
// subscribers. The writer never blocks; slow subscribers lose old
// values instead.
//
// StateFlow holds a single current value with change notification and
// duplicate suppression, the natural shape for observable state.
//
// Both convert to a cold *flow.Flow via AsFlow, so the full operator
// set applies:
//
//	state := shared.NewStateFlow(0)
//	go func() {
//		for i := 1; i <= 10; i++ {
//			state.Set(i)
//		}
//	}()
//	err := state.AsFlow().
//		Filter(func(v int) bool { return v%2 == 0 }).
//		Take(3).
//		Collect(ctx, handle)
//
// Hot flows never complete on their own; a collection ends when its
// context is cancelled or a truncating operator like Take stops it.
package shared
