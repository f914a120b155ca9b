//go:build !linux

package serial

import (
	"time"

	"github.com/brianly1003/rfidbridge/internal/domain"
)

type unsupportedPort struct{}

func openPort(cfg Config) (*unsupportedPort, error) {
	return nil, domain.ErrUnsupported
}

func (unsupportedPort) ReadLine(time.Duration) ([]byte, bool, error) {
	return nil, false, domain.ErrUnsupported
}

func (unsupportedPort) Close() error { return nil }
