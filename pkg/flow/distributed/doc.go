// Package distributed extends hot streams across process boundaries
// using Redis pub/sub as the transport.
//
// A distributed SharedFlow publishes JSON-encoded values to a Redis
// channel; AsFlow adapts a subscription into a cold flow, so the full
// operator set applies to values arriving from other processes:
//
//	events, err := distributed.New[Event](distributed.Config{
//		Redis:   client,
//		Channel: "orders.events",
//	})
//	if err != nil {
//		return err
//	}
//
//	// Producer process.
//	err = events.Emit(ctx, Event{Kind: "created", ID: 42})
//
//	// Consumer process.
//	err = events.AsFlow().
//		Filter(func(e Event) bool { return e.Kind == "created" }).
//		Collect(ctx, handle)
//
// Delivery follows Redis pub/sub semantics: at-most-once, no replay,
// subscribers only see values published while they are attached.
package distributed
