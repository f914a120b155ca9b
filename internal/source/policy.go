package source

import (
	"math/rand/v2"
	"time"
)

// DefaultReconnectInterval is the wait between attempts to open the device.
const DefaultReconnectInterval = 5 * time.Second

// ReconnectPolicy decides how long to wait before the next open attempt.
// Attempts never stop: the reader is expected to come back.
type ReconnectPolicy struct {
	Interval time.Duration
	// Jitter adds a uniform random extra in [0, Jitter) to each wait.
	Jitter time.Duration
}

// DefaultReconnectPolicy returns a fixed 5s policy without jitter.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Interval: DefaultReconnectInterval}
}

// Next returns the wait before the next attempt.
func (p ReconnectPolicy) Next() time.Duration {
	d := p.Interval
	if d < 0 {
		d = 0
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.Jitter)))
	}
	return d
}
