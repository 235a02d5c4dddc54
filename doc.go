/*
Package coflow provides structured concurrency and reactive streams for Go:
cancellable job trees, dispatcher-scoped task launching, and cold flows
with built-in backpressure.

Structured Concurrency (pkg/concurrent):
  - job: Cancellable job tree with parent-to-child cancellation
  - dispatch: Named dispatchers over pluggable executors
  - scope: Launch, Async/Await, and dispatcher bridging with timeouts

Flows (pkg/flow):
  - flow: Cold streams with operators, backpressure, and combining
  - shared: Hot SharedFlow and StateFlow multicast streams
  - distributed: Process-spanning streams over Redis pub/sub

Scheduling (pkg/scheduling):
  - cronflow: Cron expressions and intervals as flow sources

Example usage:

	import (
		"github.com/vnykmshr/coflow/pkg/concurrent/dispatch"
		"github.com/vnykmshr/coflow/pkg/concurrent/scope"
		"github.com/vnykmshr/coflow/pkg/flow"
	)

	err := scope.Run(dispatch.Go("main"), func(s *scope.Scope) error {
		return flow.Range(0, 100).
			Filter(func(v int) bool { return v%2 == 0 }).
			Take(5).
			Collect(s.Context(), handle)
	})
*/
package coflow
