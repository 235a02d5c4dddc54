package job

import (
	"context"
	"sync"
	"time"
)

// Token is a cooperative cancellation flag shared between a job and its
// descendants. Once cancelled it never reverts, and cancellation
// propagates to every child token. All methods are safe for concurrent
// use.
type Token struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
	children  []*Token
}

// NewToken creates a live root token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Child creates a token that is cancelled whenever t is cancelled.
// If t is already cancelled the child is born cancelled; a cancelled
// token never produces live children.
func (t *Token) Child() *Token {
	c := NewToken()

	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		c.Cancel()
		return c
	}
	t.children = append(t.children, c)
	t.mu.Unlock()

	return c
}

// Cancel flips the token and every descendant token. It is idempotent
// and never blocks on user code; the critical section covers only the
// flag flip and a snapshot of the child set.
func (t *Token) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	close(t.done)
	children := t.children
	t.children = nil
	t.mu.Unlock()

	for _, c := range children {
		c.Cancel()
	}
}

// IsCancelled reports whether this token, or any ancestor it was
// created from, has been cancelled.
func (t *Token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done returns a channel closed when the token is cancelled, for use in
// select statements at suspension points.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// detach removes a child token so a completed job does not keep its
// subtree reachable from the cancellation edge.
func (t *Token) detach(c *Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, tc := range t.children {
		if tc == c {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return
		}
	}
}

// Context adapts the token to the standard context interface so that
// context-aware code observes job-tree cancellation. The returned
// context has no deadline and carries no values.
func (t *Token) Context() context.Context {
	return tokenContext{t: t}
}

type tokenContext struct{ t *Token }

func (tokenContext) Deadline() (time.Time, bool) { return time.Time{}, false }

func (c tokenContext) Done() <-chan struct{} { return c.t.done }

func (c tokenContext) Err() error {
	if c.t.IsCancelled() {
		return context.Canceled
	}
	return nil
}

func (tokenContext) Value(any) any { return nil }
