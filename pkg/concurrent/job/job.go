// Package job implements the structured-concurrency tree: cancellable
// units of work with parent-to-child cancellation and child-to-parent
// completion.
package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrCancelled is returned by Join and Await when a job was cancelled
// before it completed normally. It marks an expected outcome, not a
// program error; test with errors.Is.
var ErrCancelled = errors.New("job cancelled")

// State describes where a job is in its lifecycle.
type State int32

const (
	// Active means the job body may still run and produce children.
	Active State = iota

	// Cancelling means the job was cancelled but has not yet reached a
	// terminal state; its body unwinds at the next suspension point.
	Cancelling

	// CompletedNormally is terminal: the body finished and every child
	// is terminal.
	CompletedNormally

	// CompletedCancelled is terminal: the job was cancelled before it
	// could complete normally.
	CompletedCancelled
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == CompletedNormally || s == CompletedCancelled
}

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Cancelling:
		return "cancelling"
	case CompletedNormally:
		return "completed"
	case CompletedCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var nextID atomic.Uint64

// Job is one node in the concurrency tree. It pairs a cancellation
// token with a completion latch and owns its children: a job becomes
// terminal only after its own body has finished and every child is
// terminal.
type Job struct {
	id    uint64
	token *Token

	mu       sync.Mutex
	state    State
	parent   *Job
	children []*Job
	pending  int
	bodyDone bool
	err      error

	done chan struct{}
}

// New creates a root job with a fresh cancellation token.
func New() *Job {
	return &Job{
		id:    nextID.Add(1),
		token: NewToken(),
		done:  make(chan struct{}),
	}
}

// NewChild creates a job under parent. The child's token is cancelled
// whenever the parent's token is, and is pre-cancelled if the parent is
// already cancelled: a cancelled scope never spawns live children.
func NewChild(parent *Job) *Job {
	j := &Job{
		id:     nextID.Add(1),
		token:  parent.token.Child(),
		parent: parent,
		done:   make(chan struct{}),
	}

	// The new job is unpublished here, so its own fields need no lock.
	parent.mu.Lock()
	if parent.state.Terminal() {
		// A finished parent takes no ownership; the child lives as an
		// orphan but inherits the (already settled) cancellation edge.
		j.parent = nil
	} else {
		parent.children = append(parent.children, j)
		parent.pending++
		if parent.state == Cancelling {
			j.state = Cancelling
		}
	}
	parent.mu.Unlock()

	if j.token.IsCancelled() {
		j.state = Cancelling
	}

	return j
}

// ID returns the job's stable identity.
func (j *Job) ID() uint64 { return j.id }

// Token returns the job's cancellation token.
func (j *Job) Token() *Token { return j.token }

// Context returns a context cancelled when the job is cancelled. This
// is how job-tree cancellation reaches context-aware code, including
// flow collection.
func (j *Job) Context() context.Context { return j.token.Context() }

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// IsCancelled reports whether this job or any ancestor was cancelled.
func (j *Job) IsCancelled() bool { return j.token.IsCancelled() }

// Cancel marks the subtree rooted at j as cancelling, pre-order, and
// flips every descendant token. It is idempotent, returns immediately,
// and does not wait for the subtree to reach a terminal state.
func (j *Job) Cancel() {
	j.token.Cancel()
	j.markCancelling()
}

func (j *Job) markCancelling() {
	j.mu.Lock()
	if j.state == Active {
		j.state = Cancelling
	}
	children := make([]*Job, len(j.children))
	copy(children, j.children)
	j.mu.Unlock()

	for _, c := range children {
		c.markCancelling()
	}
}

// Complete records the body's result and moves the job toward a
// terminal state. The job becomes terminal once all children are
// terminal as well. Complete is called exactly once, by the code that
// ran the body; a recovered panic arrives here as an error so the job
// still terminates and releases its children.
func (j *Job) Complete(err error) {
	j.mu.Lock()
	if j.bodyDone {
		j.mu.Unlock()
		return
	}
	j.bodyDone = true
	j.err = err
	j.tryFinishLocked()
}

// childFinished is invoked by a child on its own terminal transition;
// the parent re-checks its readiness when the pending count drains.
func (j *Job) childFinished(c *Job) {
	j.mu.Lock()
	j.pending--
	for i, jc := range j.children {
		if jc == c {
			j.children = append(j.children[:i], j.children[i+1:]...)
			break
		}
	}
	j.tryFinishLocked()
}

// tryFinishLocked transitions to a terminal state when both conditions
// hold: body done and no pending children. Releases j.mu.
func (j *Job) tryFinishLocked() {
	if j.state.Terminal() || !j.bodyDone || j.pending > 0 {
		j.mu.Unlock()
		return
	}

	if j.token.IsCancelled() || errors.Is(j.err, ErrCancelled) {
		j.state = CompletedCancelled
	} else {
		j.state = CompletedNormally
	}
	close(j.done)
	parent := j.parent
	j.mu.Unlock()

	if parent != nil {
		parent.token.detach(j.token)
		parent.childFinished(j)
	}
}

// Done returns a channel closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Join suspends the caller until the job and all of its descendants are
// terminal. It returns ErrCancelled if the job completed cancelled, the
// body's own error otherwise. Join may be called concurrently by any
// number of observers and takes no ownership of the job.
func (j *Job) Join(ctx context.Context) error {
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == CompletedCancelled {
		return ErrCancelled
	}
	return j.err
}
