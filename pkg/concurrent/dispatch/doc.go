/*
Package dispatch names and wraps the executors that run coflow work.

A Dispatcher is a thin identity layer over an Executor, the pluggable
capability that actually schedules zero-argument units of work. The
package ships three executors:

  - the goroutine executor (Go), one goroutine per unit of work
  - PoolExecutor, a fixed worker set with a bounded queue
  - LimitedExecutor, a semaphore bound over any inner executor

Scopes take a Dispatcher at construction and use it for every launch;
flow.FlowOn moves upstream production onto another Dispatcher.

	workers := dispatch.New("workers", dispatch.NewPool(4, 64))
	s := scope.New(workers)

Executors report rejection (after shutdown) via ErrShutdown; scopes
surface that to awaiting callers as scope.ErrDispatcherUnavailable.
*/
package dispatch
