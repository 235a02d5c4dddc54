// Package flow implements cold, pull-driven value streams with
// built-in backpressure.
//
// A Flow is a description of a value-producing process. Nothing runs
// until Collect is called, and every Collect call is an independent
// run, so a Flow value can be composed once and collected many times.
// Backpressure is structural: a producer's Emit call returns only after
// the downstream collector has fully handled the value, so a slow
// consumer slows the producer without any queue in between.
//
// Flows are built from constructors (Of, Range, FromChannel, Generate,
// Channel) and shaped with operators. Same-type operators are methods
// (Filter, Take, Skip, Distinct, Buffer, FlowOn); operators that change
// the element type are package-level functions (Map, FlatMapLatest,
// Zip, Combine, Merge) because Go methods cannot introduce type
// parameters.
//
// Basic usage:
//
//	evens := flow.Range(0, 100).
//		Filter(func(v int) bool { return v%2 == 0 }).
//		Take(5)
//
//	err := evens.Collect(ctx, func(v int) error {
//		fmt.Println(v)
//		return nil
//	})
//
// Buffer and FlowOn introduce concurrency deliberately: Buffer(n)
// decouples producer and consumer rates with an n-slot queue, and
// FlowOn moves the upstream production onto a dispatcher while the
// collector stays on the calling goroutine. Everything else runs on
// the collector's goroutine.
//
// Cancellation rides on context.Context. Cancelling the context passed
// to Collect stops the production at its next emission or suspension
// point and the collection returns the context's error.
package flow
