/*
Package scope ties dispatchers and jobs into structured concurrency.

A Scope is the unit a task body runs inside: it knows where work runs
(its Dispatcher) and who can cancel it (its Job). Bodies receive their
own child Scope explicitly, so nested launches form a tree without any
hidden global state; cancelling a scope cancels everything started
through it, and joining a scope waits for the whole subtree.

Basic usage:

	workers := dispatch.Go("workers")

	err := scope.Run(workers, func(s *scope.Scope) error {
		s.Launch(func(s *scope.Scope) error {
			return doWork(s.Context())
		})

		n, err := scope.With(s, workers, func(s *scope.Scope) (int, error) {
			return computeElsewhere(s.Context())
		})
		if err != nil {
			return err
		}

		d := scope.Async(s, workers, func(s *scope.Scope) (string, error) {
			return fetch(s.Context())
		})
		v, err := d.Await(s.Context())
		if err != nil {
			return err
		}
		return publish(n, v)
	})

Cancellation is cooperative: bodies are expected to consult
s.Context() (or s.IsCancelled()) at their own suspension points and
unwind by returning job.ErrCancelled or the context error. The runtime
never preempts a running body.

Error handling follows the job tree: a body's error (including a
recovered panic) is the job's own result, observable through Join or
Await, and is never escalated into the parent's result. Cancellation
propagates down silently and surfaces only at the next suspension point
of affected descendants.
*/
package scope
