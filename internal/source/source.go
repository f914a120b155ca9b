// Package source turns the serial device into a stream of card tokens.
//
// A Source owns exactly one logical connection to the device. It opens the
// port, polls it for lines at a short interval, classifies each line, and
// hands tokens to a Dispatcher one at a time. When the device disappears
// the port is released and the Source keeps trying to reopen it according
// to its ReconnectPolicy, forever, until the context is cancelled or a
// fatal error occurs.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/brianly1003/rfidbridge/internal/classifier"
	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
	"github.com/brianly1003/rfidbridge/internal/metrics"
)

const (
	// DefaultPollInterval bounds how long a single read waits for input.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultSettleDelay gives the reader board time to reset after the
	// port is opened; boards with auto-reset drop the first bytes otherwise.
	DefaultSettleDelay = 2 * time.Second
)

// Options configures a Source. Zero values select defaults, except
// SettleDelay where zero means no delay.
type Options struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	Policy       ReconnectPolicy
	Classifier   classifier.Classifier
	Clock        clockwork.Clock
	Metrics      *metrics.Metrics

	// Wakeup, when set, cuts a reconnect wait short. It is typically fed
	// by a watcher that sees the device node appear.
	Wakeup <-chan struct{}
}

// Source reads tokens from a serial device.
type Source struct {
	opener     ports.Opener
	classifier classifier.Classifier
	policy     ReconnectPolicy
	poll       time.Duration
	settle     time.Duration
	clock      clockwork.Clock
	metrics    *metrics.Metrics
	wakeup     <-chan struct{}
	decoder    *encoding.Decoder

	// state is only touched by the Run goroutine.
	state State
}

// New creates a Source reading from the given opener.
func New(opener ports.Opener, opts Options) *Source {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}

	return &Source{
		opener:     opener,
		classifier: opts.Classifier,
		policy:     opts.Policy,
		poll:       opts.PollInterval,
		settle:     opts.SettleDelay,
		clock:      opts.Clock,
		metrics:    opts.Metrics,
		wakeup:     opts.Wakeup,
		decoder:    unicode.UTF8.NewDecoder(),
		state:      Disconnected,
	}
}

// Run reads from the device until ctx is cancelled or a fatal error occurs,
// passing each token to d. It returns ctx.Err() on cancellation and a
// *domain.FatalError otherwise. The port is closed on every exit path.
// Run must not be called concurrently.
func (s *Source) Run(ctx context.Context, d ports.Dispatcher) (err error) {
	device := s.opener.Device()

	defer func() {
		if r := recover(); r != nil {
			err = domain.NewFatalError("source", fmt.Errorf("panic: %v", r))
		}
		s.setState(Disconnected)
	}()

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.setState(Connecting)
		attempt++
		log.Info().Str("device", device).Int("attempt", attempt).Msg("opening serial device")

		port, err := s.opener.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.metrics.OpenFailures.Inc()
			delay := s.policy.Next()
			log.Warn().
				Err(err).
				Str("device", device).
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Msg("could not open serial device")
			if err := s.wait(ctx, delay, true); err != nil {
				return err
			}
			continue
		}
		attempt = 0

		err = s.serve(ctx, port, d)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, domain.ErrFatal) {
			log.Error().Err(err).Str("device", device).Msg("serial source stopped")
			return err
		}

		s.metrics.Reconnects.Inc()
		s.setState(Reconnecting)
		delay := s.policy.Next()
		log.Warn().
			Err(err).
			Str("device", device).
			Dur("retry_in", delay).
			Msg("lost serial device, reconnecting")
		if err := s.wait(ctx, delay, true); err != nil {
			return err
		}
	}
}

// serve reads lines from an open port until it fails.
func (s *Source) serve(ctx context.Context, port ports.Port, d ports.Dispatcher) error {
	device := s.opener.Device()
	defer func() {
		if err := port.Close(); err != nil {
			log.Debug().Err(err).Str("device", device).Msg("closing serial port")
		}
		log.Info().Str("device", device).Msg("serial port closed")
	}()

	if s.settle > 0 {
		if err := s.wait(ctx, s.settle, false); err != nil {
			return err
		}
	}

	s.setState(Connected)
	log.Info().Str("device", device).Msg("connected, waiting for cards")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, ok, err := port.ReadLine(s.poll)
		if err != nil {
			return domain.NewDeviceError("read", device, err)
		}
		if !ok {
			continue
		}

		if err := s.handleLine(ctx, raw, d); err != nil {
			return err
		}
	}
}

// handleLine decodes, classifies and dispatches one raw line.
func (s *Source) handleLine(ctx context.Context, raw []byte, d ports.Dispatcher) error {
	text := s.decode(raw)

	token, verdict := s.classifier.Classify(text)
	switch verdict {
	case classifier.Empty:
		return nil

	case classifier.Chatter:
		s.metrics.LinesRead.Inc()
		s.metrics.ChatterLines.Inc()
		log.Info().Str("line", strings.TrimSpace(text)).Msg("ignoring device log line")
		return nil
	}

	s.metrics.LinesRead.Inc()
	s.metrics.TokensEmitted.Inc()
	log.Info().Str("token", token.String()).Msg("card read")

	if err := d.Dispatch(ctx, token); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, domain.ErrFatal) {
			return err
		}
		return domain.NewFatalError("dispatch", err)
	}
	return nil
}

// decode converts raw bytes to text, replacing invalid UTF-8 with U+FFFD.
func (s *Source) decode(raw []byte) string {
	out, err := s.decoder.Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}

// wait sleeps for d on the source clock. A wakeup signal ends the wait
// early when interruptible is set.
func (s *Source) wait(ctx context.Context, d time.Duration, interruptible bool) error {
	if d <= 0 {
		return ctx.Err()
	}

	var wakeup <-chan struct{}
	if interruptible {
		wakeup = s.wakeup
	}

	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	case <-wakeup:
		log.Debug().Str("device", s.opener.Device()).Msg("device appeared, retrying now")
		return nil
	}
}

func (s *Source) setState(state State) {
	if s.state == state {
		return
	}
	log.Debug().
		Str("device", s.opener.Device()).
		Stringer("from", s.state).
		Stringer("to", state).
		Msg("serial state change")
	s.state = state
}
