/*
Package concurrent provides the structured-concurrency layer.

  - job: cancellable job tree with parent-to-child cancellation and
    child-to-parent completion
  - dispatch: named dispatchers over pluggable executors (per-task
    goroutines, bounded worker pools, concurrency limits)
  - scope: launching, awaiting, and dispatcher bridging on top of the
    job tree

The central invariant is structure: every task launched through a scope
is a child of that scope's job, cancelling a job cancels its whole
subtree, and a job only becomes terminal after all of its children
have. Waiting for a scope therefore waits for everything transitively
started through it:

	err := scope.Run(dispatch.Go("main"), func(s *scope.Scope) error {
		s.Launch(worker)

		result, err := scope.WithTimeout(s, ioDispatcher, time.Second, fetch)
		if err != nil {
			return err
		}
		return publish(s, result)
	})
	// Nothing started inside Run is still running here.

Cancellation is cooperative. Cancelling a scope flips tokens and cancels
contexts; task bodies observe it at suspension points through
s.Context() and unwind by returning.
*/
package concurrent
