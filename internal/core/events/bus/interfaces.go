package bus

import "time"

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// EventBus is a thread-safe, in-process pub/sub event bus.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type() string.
// - Wildcard subscriptions receive every event regardless of type.
// - Synchronous delivery: Publish calls handler callbacks in the caller goroutine.
// - Error aggregation: multiple handler errors are joined and returned from Publish.
//
// Handlers should be quick or offload heavy work; a tree runner publishes
// from inside its tick.
type EventBus interface {
	// Publish delivers the event synchronously to all active subscribers of
	// event.Type() and to wildcard subscribers.
	Publish(event Event) error
	// Subscribe registers a handler for a specific event type, or for every
	// type when eventType is Wildcard.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. It is safe to call with nil.
	Unsubscribe(Subscription) error
	// HasSubscribers reports whether publishing eventType would reach anyone.
	// Publishers use it to skip building payloads nobody reads.
	HasSubscribers(eventType string) bool
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// EventHandler is invoked per delivered event.
	EventHandler func(event Event) error
)

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}
