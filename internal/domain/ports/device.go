package ports

import (
	"context"
	"time"
)

// Port is an open serial device.
type Port interface {
	// ReadLine waits at most timeout for one complete line and returns it
	// without the line terminator. ok is false when no complete line was
	// available in time. Any error means the port is unusable.
	ReadLine(timeout time.Duration) (line []byte, ok bool, err error)

	// Close releases the device handle. Safe to call more than once.
	Close() error
}

// Opener opens the configured serial device.
type Opener interface {
	Open(ctx context.Context) (Port, error)

	// Device returns the device path, for logging.
	Device() string
}
