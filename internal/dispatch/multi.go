// Package dispatch combines dispatchers.
package dispatch

import (
	"context"

	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
)

// Multi hands each token to every dispatcher in order. The first error
// stops the chain and is returned.
type Multi []ports.Dispatcher

// Dispatch implements ports.Dispatcher.
func (m Multi) Dispatch(ctx context.Context, token events.Token) error {
	for _, d := range m {
		if err := d.Dispatch(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.Dispatcher = Multi(nil)
