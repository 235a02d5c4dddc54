package dispatch

import "errors"

// ErrShutdown is returned when work is submitted to an executor that has
// been shut down.
var ErrShutdown = errors.New("executor is shut down")

// Executor is the external capability a dispatcher wraps: it accepts a
// zero-argument unit of work and is fully responsible for when and on
// which goroutine it runs. The only guarantee is eventual execution of
// accepted work.
type Executor interface {
	// Submit schedules fn for eventual execution. It returns an error,
	// typically ErrShutdown, if the executor cannot accept more work.
	Submit(fn func()) error
}

// Dispatcher names an executor. The name is the identity used for
// context-switching decisions and for metric labels; a dispatcher may
// back any number of scopes.
type Dispatcher struct {
	name string
	exec Executor
}

// New wraps an executor in a named dispatcher.
func New(name string, exec Executor) *Dispatcher {
	return &Dispatcher{name: name, exec: exec}
}

// Go returns a dispatcher that runs every unit of work on its own
// goroutine. It never rejects work and has nothing to shut down.
func Go(name string) *Dispatcher {
	return New(name, goExecutor{})
}

// Name returns the dispatcher's identity.
func (d *Dispatcher) Name() string { return d.name }

// Submit forwards fn to the underlying executor.
func (d *Dispatcher) Submit(fn func()) error { return d.exec.Submit(fn) }

type goExecutor struct{}

func (goExecutor) Submit(fn func()) error {
	go fn()
	return nil
}
