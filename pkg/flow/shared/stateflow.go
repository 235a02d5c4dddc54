package shared

import (
	"context"
	"reflect"
	"sync"

	"github.com/vnykmshr/coflow/pkg/flow"
)

// StateFlow is a hot stream that always holds a current value. Setting
// an equal value is a no-op for subscribers; setting an unequal value
// updates the current value and notifies them. Subscribers that process
// slowly see the latest value rather than every intermediate one.
type StateFlow[T any] struct {
	eq func(a, b T) bool

	mu      sync.Mutex
	value   T
	version uint64
	wake    chan struct{}
}

// NewStateFlow creates a StateFlow holding initial, comparing values
// with reflect.DeepEqual.
func NewStateFlow[T any](initial T) *StateFlow[T] {
	return NewStateFlowWithEquality(initial, func(a, b T) bool {
		return reflect.DeepEqual(a, b)
	})
}

// NewStateFlowWithEquality creates a StateFlow holding initial with a
// custom equality function. Useful when DeepEqual is too expensive or
// when only part of the value identifies a state change.
func NewStateFlowWithEquality[T any](initial T, eq func(a, b T) bool) *StateFlow[T] {
	return &StateFlow[T]{
		eq:    eq,
		value: initial,
		wake:  make(chan struct{}),
	}
}

// Get returns the current value.
func (s *StateFlow[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the current value. Subscribers are notified only when
// the new value compares unequal to the previous one; the stored value
// is replaced either way.
func (s *StateFlow[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.eq(s.value, value)
	s.value = value
	if changed {
		s.version++
		close(s.wake)
		s.wake = make(chan struct{})
	}
	s.mu.Unlock()
}

// AsFlow returns a cold view of the state. Each collection immediately
// receives the current value, then every change that leaves the value
// unequal to the last one delivered to that collection. Intermediate
// values may be skipped while the collector is busy; the latest value
// always arrives. Runs until the context is cancelled.
func (s *StateFlow[T]) AsFlow() *flow.Flow[T] {
	return flow.New(func(ctx context.Context, out flow.Collector[T]) error {
		s.mu.Lock()
		last := s.value
		lastVersion := s.version
		wake := s.wake
		s.mu.Unlock()

		if err := out.Emit(ctx, last); err != nil {
			return err
		}

		for {
			select {
			case <-wake:
			case <-ctx.Done():
				return ctx.Err()
			}

			s.mu.Lock()
			value := s.value
			version := s.version
			wake = s.wake
			s.mu.Unlock()

			if version == lastVersion {
				continue
			}
			lastVersion = version
			if s.eq(last, value) {
				// Changed and changed back while we were busy.
				continue
			}
			last = value
			if err := out.Emit(ctx, value); err != nil {
				return err
			}
		}
	})
}
