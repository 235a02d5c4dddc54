package shared

import (
	"context"
	"fmt"
	"sync"

	"github.com/vnykmshr/coflow/pkg/flow"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

// Config configures a SharedFlow.
type Config[T any] struct {
	// Capacity is the size of the multicast ring buffer. Must be at
	// least 1.
	Capacity int

	// Replay is how many of the most recent values a new subscriber
	// receives on subscription. Must not exceed Capacity.
	Replay int

	// Name labels the flow in metrics.
	Name string

	// OnDrop, if set, is called with each value evicted from the ring
	// before every subscriber could read it.
	OnDrop func(value T)

	// Metrics receives emit, drop and subscriber counts. Nil disables
	// instrumentation.
	Metrics *metrics.Registry
}

// DefaultConfig returns a sensible SharedFlow configuration.
func DefaultConfig[T any]() Config[T] {
	return Config[T]{
		Capacity: 64,
		Replay:   0,
		Name:     "shared",
	}
}

// SharedFlow is a hot multicast stream. Values are written into a
// bounded ring buffer and every subscriber reads the buffer through its
// own cursor, so one slow subscriber never blocks the writer or other
// subscribers. When the ring is full the oldest value is evicted; a
// subscriber that has fallen behind silently skips to the oldest value
// still buffered.
type SharedFlow[T any] struct {
	cfg Config[T]

	mu    sync.Mutex
	buf   []T
	first uint64 // sequence of the oldest buffered value
	next  uint64 // sequence the next Emit will be assigned
	wake  chan struct{}
	subs  int
}

// NewSharedFlow creates a SharedFlow with the given ring capacity and
// replay count and otherwise default configuration.
func NewSharedFlow[T any](capacity, replay int) *SharedFlow[T] {
	cfg := DefaultConfig[T]()
	cfg.Capacity = capacity
	cfg.Replay = replay
	return NewSharedFlowWithConfig(cfg)
}

// NewSharedFlowWithConfig creates a SharedFlow from cfg. Panics if the
// capacity is not positive or the replay count exceeds it.
func NewSharedFlowWithConfig[T any](cfg Config[T]) *SharedFlow[T] {
	if cfg.Capacity < 1 {
		panic(fmt.Sprintf("shared: capacity must be at least 1, got %d", cfg.Capacity))
	}
	if cfg.Replay < 0 || cfg.Replay > cfg.Capacity {
		panic(fmt.Sprintf("shared: replay %d out of range for capacity %d", cfg.Replay, cfg.Capacity))
	}
	if cfg.Name == "" {
		cfg.Name = "shared"
	}
	return &SharedFlow[T]{
		cfg:  cfg,
		buf:  make([]T, cfg.Capacity),
		wake: make(chan struct{}),
	}
}

// Emit writes a value to every current subscriber. It never blocks: if
// the ring is full the oldest buffered value is evicted first, and
// subscribers that had not read it miss it.
func (s *SharedFlow[T]) Emit(value T) {
	var (
		dropped T
		evicted bool
	)

	s.mu.Lock()
	if s.next-s.first == uint64(len(s.buf)) {
		dropped = s.buf[s.first%uint64(len(s.buf))]
		s.first++
		evicted = true
	}
	s.buf[s.next%uint64(len(s.buf))] = value
	s.next++
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()

	if m := s.cfg.Metrics; m != nil {
		m.SharedFlowEmits.WithLabelValues(s.cfg.Name).Inc()
		if evicted {
			m.SharedFlowDropped.WithLabelValues(s.cfg.Name).Inc()
		}
	}
	if evicted && s.cfg.OnDrop != nil {
		s.cfg.OnDrop(dropped)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (s *SharedFlow[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs
}

// AsFlow returns a cold view of the shared flow. Each collection is an
// independent subscription: it first receives up to Replay recent
// values, then every value emitted from that point on, and runs until
// its context is cancelled. Hot flows never complete on their own.
func (s *SharedFlow[T]) AsFlow() *flow.Flow[T] {
	return flow.New(func(ctx context.Context, out flow.Collector[T]) error {
		s.mu.Lock()
		cursor := s.first
		if avail := s.next - s.first; avail > uint64(s.cfg.Replay) {
			cursor = s.next - uint64(s.cfg.Replay)
		}
		s.subs++
		s.mu.Unlock()

		if m := s.cfg.Metrics; m != nil {
			m.SharedFlowSubscribers.WithLabelValues(s.cfg.Name).Inc()
		}
		defer func() {
			s.mu.Lock()
			s.subs--
			s.mu.Unlock()
			if m := s.cfg.Metrics; m != nil {
				m.SharedFlowSubscribers.WithLabelValues(s.cfg.Name).Dec()
			}
		}()

		for {
			s.mu.Lock()
			if cursor < s.first {
				// Fell behind; skip to the oldest value still buffered.
				cursor = s.first
			}
			if cursor < s.next {
				value := s.buf[cursor%uint64(len(s.buf))]
				cursor++
				s.mu.Unlock()
				if err := out.Emit(ctx, value); err != nil {
					return err
				}
				continue
			}
			wake := s.wake
			s.mu.Unlock()

			select {
			case <-wake:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
