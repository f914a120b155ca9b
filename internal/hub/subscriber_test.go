package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/domain/events"
)

func TestChannelSubscriber_ID(t *testing.T) {
	tests := []struct {
		id string
	}{
		{"subscriber-1"},
		{"ws-client-abc"},
		{""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			sub := NewChannelSubscriber(tt.id, 1)
			if sub.ID() != tt.id {
				t.Errorf("ID() = %q, want %q", sub.ID(), tt.id)
			}
		})
	}
}

func TestChannelSubscriber_Send(t *testing.T) {
	sub := NewChannelSubscriber("test", 10)

	if err := sub.Send(context.Background(), "A1B2C3"); err != nil {
		t.Fatalf("Send() error = %v, want nil", err)
	}

	select {
	case got := <-sub.Tokens():
		if got != "A1B2C3" {
			t.Errorf("received %q, want A1B2C3", got)
		}
	default:
		t.Error("expected token in channel")
	}
}

func TestChannelSubscriber_SendBlocksUntilContextDone(t *testing.T) {
	sub := NewChannelSubscriber("test", 1)
	_ = sub.Send(context.Background(), "CARD0001")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sub.Send(ctx, "CARD0002")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() on full buffer error = %v, want DeadlineExceeded", err)
	}
}

func TestChannelSubscriber_Close(t *testing.T) {
	sub := NewChannelSubscriber("test", 1)

	if err := sub.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	select {
	case <-sub.Done():
	default:
		t.Error("Done() should be closed")
	}

	if err := sub.Send(context.Background(), "A1B2C3"); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after Close error = %v, want ErrSubscriberClosed", err)
	}
}

func TestChannelSubscriber_CloseUnblocksSend(t *testing.T) {
	sub := NewChannelSubscriber("test", 1)
	_ = sub.Send(context.Background(), "CARD0001")

	errCh := make(chan error, 1)
	go func() { errCh <- sub.Send(context.Background(), "CARD0002") }()

	time.Sleep(10 * time.Millisecond)
	_ = sub.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrSubscriberClosed) {
			t.Errorf("Send() error = %v, want ErrSubscriberClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Send")
	}
}

func TestLogSubscriber(t *testing.T) {
	var logged []events.Token
	sub := NewLogSubscriber("log", func(token events.Token) {
		logged = append(logged, token)
	})

	if sub.ID() != "log" {
		t.Errorf("ID() = %q, want log", sub.ID())
	}

	_ = sub.Send(context.Background(), "A1B2C3")
	_ = sub.Send(context.Background(), "CARD0001")

	if len(logged) != 2 || logged[0] != "A1B2C3" || logged[1] != "CARD0001" {
		t.Errorf("logged = %v, want [A1B2C3 CARD0001]", logged)
	}

	_ = sub.Close()
	if err := sub.Send(context.Background(), "X1234"); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Errorf("Send() after Close error = %v, want ErrSubscriberClosed", err)
	}
	if len(logged) != 2 {
		t.Error("closed subscriber should not log")
	}
}

func TestLogSubscriber_NilFunc(t *testing.T) {
	sub := NewLogSubscriber("log", nil)
	if err := sub.Send(context.Background(), "A1B2C3"); err != nil {
		t.Errorf("Send() error = %v", err)
	}
}
