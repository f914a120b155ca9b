// Package serial provides line-oriented access to the card reader's serial port.
//
// On Linux the port is opened through termios in raw 8N1 mode. Reads are
// driven by poll(2) with a timeout, so a caller can wait a bounded time for
// the next line and check for shutdown in between. Other platforms get an
// Opener that always fails with domain.ErrUnsupported.
package serial

import (
	"bytes"
	"context"
	"slices"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
)

const (
	// DefaultBaudRate matches the reader firmware.
	DefaultBaudRate = 115200

	// maxLineLength caps the bytes buffered while waiting for a newline.
	// Anything past it on the same line is dropped.
	maxLineLength = 4096

	readBufferSize = 512
)

var supportedBaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400}

// IsSupportedBaudRate reports whether the port can be configured at baud.
func IsSupportedBaudRate(baud int) bool {
	return slices.Contains(supportedBaudRates, baud)
}

// SupportedBaudRates returns the accepted baud rates.
func SupportedBaudRates() []int {
	return slices.Clone(supportedBaudRates)
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device   string
	BaudRate int
}

// Opener opens the configured device on each call.
type Opener struct {
	cfg Config
}

// NewOpener creates an Opener. A zero baud rate means DefaultBaudRate.
func NewOpener(cfg Config) *Opener {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	return &Opener{cfg: cfg}
}

// Device returns the device path.
func (o *Opener) Device() string {
	return o.cfg.Device
}

// Open opens the device. Errors are *domain.DeviceError.
func (o *Opener) Open(ctx context.Context) (ports.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := openPort(o.cfg)
	if err != nil {
		return nil, domain.NewDeviceError("open", o.cfg.Device, err)
	}
	return p, nil
}

var _ ports.Opener = (*Opener)(nil)

// lineSplitter cuts a byte stream into newline-terminated lines. A line
// longer than maxLineLength is returned once, truncated, and the rest of it
// up to the next newline is dropped, so one physical line never yields two.
type lineSplitter struct {
	pending    []byte
	discarding bool
}

func (s *lineSplitter) write(p []byte) {
	s.pending = append(s.pending, p...)
}

// next returns the next complete line, if any.
func (s *lineSplitter) next() ([]byte, bool) {
	for {
		i := bytes.IndexByte(s.pending, '\n')

		if s.discarding {
			if i < 0 {
				s.pending = s.pending[:0]
				return nil, false
			}
			s.pending = s.pending[i+1:]
			s.discarding = false
			continue
		}

		if i >= 0 {
			line := bytes.Clone(s.pending[:i])
			s.pending = s.pending[i+1:]
			return line, true
		}

		if len(s.pending) >= maxLineLength {
			line := bytes.Clone(s.pending[:maxLineLength])
			s.pending = s.pending[:0]
			s.discarding = true
			return line, true
		}
		return nil, false
	}
}
