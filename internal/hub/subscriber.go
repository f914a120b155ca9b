package hub

import (
	"context"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

// ChannelSubscriber is a subscriber that sends tokens to a buffered channel.
// Send blocks while the buffer is full.
type ChannelSubscriber struct {
	id        string
	send      chan events.Token
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelSubscriber creates a new channel-based subscriber.
func NewChannelSubscriber(id string, bufferSize int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:   id,
		send: make(chan events.Token, bufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Send queues a token for the subscriber.
func (s *ChannelSubscriber) Send(ctx context.Context, token events.Token) error {
	select {
	case <-s.done:
		return domain.ErrSubscriberClosed
	default:
	}

	select {
	case s.send <- token:
		return nil
	case <-s.done:
		return domain.ErrSubscriberClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the subscriber. The token channel stays open; readers
// should select on Done.
func (s *ChannelSubscriber) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Tokens returns the channel to receive tokens from.
func (s *ChannelSubscriber) Tokens() <-chan events.Token {
	return s.send
}

// LogSubscriber hands every token to a function, usually a debug logger.
type LogSubscriber struct {
	id        string
	done      chan struct{}
	closeOnce sync.Once
	logFn     func(token events.Token)
}

// NewLogSubscriber creates a new log subscriber.
func NewLogSubscriber(id string, logFn func(token events.Token)) *LogSubscriber {
	return &LogSubscriber{
		id:    id,
		done:  make(chan struct{}),
		logFn: logFn,
	}
}

// ID returns the subscriber's unique identifier.
func (s *LogSubscriber) ID() string {
	return s.id
}

// Send logs the token.
func (s *LogSubscriber) Send(_ context.Context, token events.Token) error {
	select {
	case <-s.done:
		return domain.ErrSubscriberClosed
	default:
	}
	if s.logFn != nil {
		s.logFn(token)
	}
	return nil
}

// Close closes the subscriber.
func (s *LogSubscriber) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *LogSubscriber) Done() <-chan struct{} {
	return s.done
}
