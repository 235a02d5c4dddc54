package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/coflow/pkg/flow"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

// ErrSubscriptionClosed is returned when the Redis subscription ends
// before the collection's context does.
var ErrSubscriptionClosed = errors.New("distributed: subscription closed")

// Config holds configuration for a Redis-backed shared flow.
type Config struct {
	// Redis client used for pub/sub coordination.
	Redis redis.UniversalClient

	// Channel is the Redis pub/sub channel values travel over.
	Channel string

	// Name labels the flow in metrics. Defaults to the channel name.
	Name string

	// Metrics receives emit and subscriber counts. Nil disables
	// instrumentation.
	Metrics *metrics.Registry
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "distributed shared flow config error: " + e.Message
}

// RedisError represents a Redis operation error.
type RedisError struct {
	Operation string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis error in " + e.Operation + ": " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}

// SharedFlow is a process-spanning hot stream over Redis pub/sub.
// Emitting publishes the JSON-encoded value to a channel; every
// subscriber in every connected process receives it. Like an in-process
// shared flow it is lossy: pub/sub has no replay, so values emitted
// while a subscriber is not attached are gone.
type SharedFlow[T any] struct {
	cfg Config
}

// New creates a Redis-backed shared flow from cfg.
func New[T any](cfg Config) (*SharedFlow[T], error) {
	if cfg.Redis == nil {
		return nil, &ConfigError{"redis client is required"}
	}
	if cfg.Channel == "" {
		return nil, &ConfigError{"channel is required"}
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Channel
	}
	return &SharedFlow[T]{cfg: cfg}, nil
}

// Emit publishes a value to every subscriber across all processes. It
// returns once Redis has accepted the publish; it does not wait for
// subscribers.
func (s *SharedFlow[T]) Emit(ctx context.Context, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("distributed: encode value: %w", err)
	}
	if err := s.cfg.Redis.Publish(ctx, s.cfg.Channel, payload).Err(); err != nil {
		return &RedisError{"publish", err}
	}
	if m := s.cfg.Metrics; m != nil {
		m.SharedFlowEmits.WithLabelValues(s.cfg.Name).Inc()
	}
	return nil
}

// AsFlow returns a cold view of the channel. Each collection opens its
// own Redis subscription, receives values published from subscription
// onward, and runs until its context is cancelled.
func (s *SharedFlow[T]) AsFlow() *flow.Flow[T] {
	return flow.New(func(ctx context.Context, out flow.Collector[T]) error {
		pubsub := s.cfg.Redis.Subscribe(ctx, s.cfg.Channel)
		defer pubsub.Close()

		// Wait for the subscription confirmation so values published
		// after AsFlow's collection starts are not missed.
		if _, err := pubsub.Receive(ctx); err != nil {
			return &RedisError{"subscribe", err}
		}

		if m := s.cfg.Metrics; m != nil {
			m.SharedFlowSubscribers.WithLabelValues(s.cfg.Name).Inc()
			defer m.SharedFlowSubscribers.WithLabelValues(s.cfg.Name).Dec()
		}

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return ErrSubscriptionClosed
				}
				var value T
				if err := json.Unmarshal([]byte(msg.Payload), &value); err != nil {
					return fmt.Errorf("distributed: decode value: %w", err)
				}
				if err := out.Emit(ctx, value); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
