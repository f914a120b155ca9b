package websocket

import (
	"context"

	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
)

// ClientSubscriber wraps a WebSocket client as a hub subscriber.
type ClientSubscriber struct {
	client *Client
}

// NewClientSubscriber creates a subscriber from a WebSocket client.
func NewClientSubscriber(client *Client) *ClientSubscriber {
	return &ClientSubscriber{client: client}
}

// ID returns the subscriber's unique identifier.
func (s *ClientSubscriber) ID() string {
	return s.client.ID()
}

// Send writes the token as a single text frame.
func (s *ClientSubscriber) Send(ctx context.Context, token events.Token) error {
	return s.client.Send(ctx, token.Bytes())
}

// Close closes the subscriber.
func (s *ClientSubscriber) Close() error {
	s.client.Close()
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ClientSubscriber) Done() <-chan struct{} {
	return s.client.Done()
}

var _ ports.Subscriber = (*ClientSubscriber)(nil)
