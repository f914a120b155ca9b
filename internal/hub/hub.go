// Package hub fans card tokens out to every connected subscriber.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
	"github.com/brianly1003/rfidbridge/internal/metrics"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

// DefaultDeliveryTimeout bounds a single delivery to one subscriber.
const DefaultDeliveryTimeout = 5 * time.Second

// Options configures a Hub.
type Options struct {
	// DeliveryTimeout bounds each Send. Zero selects DefaultDeliveryTimeout.
	DeliveryTimeout time.Duration

	// MaxConcurrency limits parallel deliveries per token. Zero or less
	// means no limit.
	MaxConcurrency int

	Metrics *metrics.Metrics
}

// Hub is the broadcaster. Each Dispatch delivers one token to all
// subscribers and returns once every delivery has finished or failed.
type Hub struct {
	registry *Registry
	timeout  time.Duration
	limit    int
	metrics  *metrics.Metrics

	// mu protects running and stopped
	mu      sync.RWMutex
	running bool
	stopped bool
}

// New creates a new Hub.
func New(opts Options) *Hub {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Hub{
		registry: NewRegistry(),
		timeout:  opts.DeliveryTimeout,
		limit:    opts.MaxConcurrency,
		metrics:  opts.Metrics,
	}
}

// Start marks the hub as accepting subscribers and tokens.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}
	if h.stopped {
		return domain.ErrHubNotRunning
	}
	h.running = true

	log.Debug().Bool("deadlock_detection", sync.DetectionEnabled()).Msg("event hub started")
	return nil
}

// Stop closes all subscribers. A stopped hub cannot be restarted.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	h.stopped = true

	// Holding the lock keeps Subscribe from adding behind CloseAll.
	h.registry.CloseAll()
	h.metrics.Subscribers.Set(0)

	log.Debug().Msg("event hub stopped")
	return nil
}

// Subscribe adds a subscriber. Subscribers offered to a hub that is not
// running are closed straight away.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.running {
		_ = sub.Close()
		log.Debug().Str("subscriber_id", sub.ID()).Msg("hub not running, subscriber rejected")
		return
	}

	if h.registry.Add(sub) {
		h.metrics.Subscribers.Set(float64(h.registry.Len()))
		log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")
	}
}

// Unsubscribe removes and closes a subscriber.
func (h *Hub) Unsubscribe(sub ports.Subscriber) {
	if h.registry.Remove(sub) {
		h.metrics.Subscribers.Set(float64(h.registry.Len()))
		log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber unregistered")
	}
	_ = sub.Close()
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	return h.registry.Len()
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Dispatch delivers token to every current subscriber concurrently.
// Subscribers whose delivery fails are removed and closed; the error is
// not returned. Dispatch on a hub that is not running is fatal.
func (h *Hub) Dispatch(ctx context.Context, token events.Token) error {
	if !h.IsRunning() {
		return domain.NewFatalError("broadcast", domain.ErrHubNotRunning)
	}

	start := time.Now()
	subs := h.registry.Snapshot()
	if len(subs) == 0 {
		log.Debug().Str("token", token.String()).Msg("no subscribers connected")
		return nil
	}

	var (
		mu     sync.Mutex
		failed int
	)

	g := new(errgroup.Group)
	if h.limit > 0 {
		g.SetLimit(h.limit)
	}
	for _, sub := range subs {
		g.Go(func() error {
			err := h.deliver(ctx, sub, token)
			if err == nil {
				h.metrics.Deliveries.WithLabelValues(metrics.ResultOK).Inc()
				return nil
			}
			if ctx.Err() != nil {
				// Shutting down; the subscriber did nothing wrong.
				return nil
			}

			mu.Lock()
			failed++
			mu.Unlock()
			h.drop(sub, err)
			return nil
		})
	}
	_ = g.Wait()

	h.metrics.DispatchSeconds.Observe(time.Since(start).Seconds())
	log.Debug().
		Str("token", token.String()).
		Int("delivered", len(subs)-failed).
		Int("failed", failed).
		Msg("token broadcast")
	return nil
}

// deliver sends one token with its own deadline. A Send that ignores its
// context is abandoned once the deadline passes.
func (h *Hub) deliver(ctx context.Context, sub ports.Subscriber, token events.Token) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sub.Send(ctx, token)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", domain.ErrDeliveryTimeout, h.timeout)
	}
	if err != nil {
		return &domain.DeliveryError{SubscriberID: sub.ID(), Err: err}
	}
	return nil
}

func (h *Hub) drop(sub ports.Subscriber, err error) {
	result := metrics.ResultError
	if errors.Is(err, domain.ErrDeliveryTimeout) {
		result = metrics.ResultTimeout
	}
	h.metrics.Deliveries.WithLabelValues(result).Inc()

	log.Warn().
		Str("subscriber_id", sub.ID()).
		Err(err).
		Msg("failed to deliver token, dropping subscriber")
	h.Unsubscribe(sub)
}

var _ ports.EventHub = (*Hub)(nil)
