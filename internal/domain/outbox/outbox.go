// Package outbox holds the contracts between code that records domain facts
// and the workers that react to them.
package outbox

import "context"

// Event is a domain fact named "<aggregate>.<verb>", e.g. "order.paid".
type Event interface {
	EventName() string
}

// OrderScoped is implemented by events that concern a single order.
type OrderScoped interface {
	Event
	OrderKey() string
}

// OrderID returns the order an event concerns, or "" when it is not order scoped.
func OrderID(e Event) string {
	if s, ok := e.(OrderScoped); ok {
		return s.OrderKey()
	}
	return ""
}

// Handler reacts to one delivered event. Errors are logged and not retried.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber attaches handlers by event name; several handlers may share a name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
