// Package ports declares the interfaces between the relay core and its adapters.
package ports

import (
	"context"

	"github.com/brianly1003/rfidbridge/internal/domain/events"
)

// Subscriber represents a live consumer of tokens.
type Subscriber interface {
	// ID returns a unique identifier for this subscriber, used in logs.
	ID() string

	// Send delivers a token to this subscriber. It blocks until the token
	// has been handed to the transport, ctx is done, or the send fails.
	Send(ctx context.Context, token events.Token) error

	// Close closes the subscriber. Safe to call more than once.
	Close() error

	// Done returns a channel that's closed when the subscriber is done.
	Done() <-chan struct{}
}

// EventHub defines the contract for the broadcast side of the relay.
type EventHub interface {
	Dispatcher

	// Start begins the event hub.
	Start() error

	// Stop gracefully stops the hub and closes all subscribers.
	Stop() error

	// Subscribe adds a new subscriber.
	Subscribe(sub Subscriber)

	// Unsubscribe removes a subscriber.
	Unsubscribe(sub Subscriber)

	// SubscriberCount returns the number of active subscribers.
	SubscriberCount() int
}

// Dispatcher consumes tokens produced by the serial source.
//
// Dispatch is called once per token and the source waits for it to return
// before reading the next line. Recoverable delivery problems are handled
// inside the dispatcher; a returned error stops the source and should wrap
// domain.ErrFatal.
type Dispatcher interface {
	Dispatch(ctx context.Context, token events.Token) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, token events.Token) error

// Dispatch calls f(ctx, token).
func (f DispatcherFunc) Dispatch(ctx context.Context, token events.Token) error {
	return f(ctx, token)
}
