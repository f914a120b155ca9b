// Package app orchestrates all components of rfidbridge.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/rfidbridge/internal/adapters/serial"
	"github.com/brianly1003/rfidbridge/internal/adapters/watcher"
	"github.com/brianly1003/rfidbridge/internal/classifier"
	"github.com/brianly1003/rfidbridge/internal/config"
	"github.com/brianly1003/rfidbridge/internal/dispatch"
	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
	"github.com/brianly1003/rfidbridge/internal/forwarder"
	"github.com/brianly1003/rfidbridge/internal/hub"
	"github.com/brianly1003/rfidbridge/internal/metrics"
	"github.com/brianly1003/rfidbridge/internal/pairing"
	"github.com/brianly1003/rfidbridge/internal/server/websocket"
	"github.com/brianly1003/rfidbridge/internal/source"
	"github.com/brianly1003/rfidbridge/internal/sync"
)

// shutdownTimeout bounds the HTTP server drain.
const shutdownTimeout = 5 * time.Second

// Option customizes an App.
type Option func(*App)

// WithOpener replaces the serial device opener.
func WithOpener(opener ports.Opener) Option {
	return func(a *App) { a.opener = opener }
}

// WithReporter replaces where access decisions are printed.
func WithReporter(r forwarder.Reporter) Option {
	return func(a *App) { a.reporter = r }
}

// WithOutput sets where the connect banner is printed.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string

	opener   ports.Opener
	reporter forwarder.Reporter
	out      io.Writer

	// Core components
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	hub           *hub.Hub
	forwarder     *forwarder.Forwarder
	server        *websocket.Server
	deviceWatcher *watcher.DeviceWatcher
	qrGenerator   *pairing.QRGenerator
	source        *source.Source

	// Lifecycle
	mu      sync.RWMutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	a := &App{
		cfg:     cfg,
		version: version,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.registry = metrics.NewRegistry()
	a.metrics = metrics.New(a.registry)

	if a.opener == nil {
		a.opener = serial.NewOpener(serial.Config{
			Device:   cfg.Serial.Device,
			BaudRate: cfg.Serial.BaudRate,
		})
	}

	var wakeup <-chan struct{}
	if cfg.Serial.WatchDevice {
		a.deviceWatcher = watcher.NewDeviceWatcher(a.opener.Device())
		wakeup = a.deviceWatcher.Appeared()
	}

	a.source = source.New(a.opener, source.Options{
		PollInterval: cfg.Serial.PollInterval(),
		SettleDelay:  cfg.Serial.Settle(),
		Policy: source.ReconnectPolicy{
			Interval: cfg.Serial.ReconnectDelay(),
			Jitter:   cfg.Serial.ReconnectJitter(),
		},
		Classifier: classifier.NewShapeClassifier(cfg.Classifier.MinLength, cfg.Classifier.MaxLength),
		Metrics:    a.metrics,
		Wakeup:     wakeup,
	})

	if cfg.Relay.Forwards() {
		a.forwarder = forwarder.New(forwarder.Options{
			URL:      cfg.Forward.URL,
			Timeout:  cfg.Forward.Timeout(),
			Reporter: a.reporter,
			Metrics:  a.metrics,
		})
	}

	if cfg.Relay.Broadcasts() {
		a.hub = hub.New(hub.Options{
			DeliveryTimeout: cfg.Relay.DeliveryTimeout(),
			MaxConcurrency:  cfg.Relay.MaxConcurrency,
			Metrics:         a.metrics,
		})
		a.server = websocket.NewServer(websocket.Options{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Hub:            a.hub,
			MetricsHandler: metrics.Handler(a.registry),
		})
	}

	return a, nil
}

// Start runs the relay and blocks until ctx is cancelled or the serial
// source fails fatally. Cancellation returns nil.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.mu.Unlock()

	log.Info().
		Str("version", a.version).
		Str("device", a.opener.Device()).
		Str("mode", a.cfg.Relay.Mode).
		Msg("rfidbridge starting")

	if a.hub != nil {
		if err := a.hub.Start(); err != nil {
			_ = a.shutdown()
			return fmt.Errorf("failed to start event hub: %w", err)
		}

		// Add log subscriber for debugging
		a.hub.Subscribe(hub.NewLogSubscriber("internal-logger", func(token events.Token) {
			log.Trace().Str("token", token.String()).Msg("token broadcast")
		}))

		if err := a.server.Start(); err != nil {
			_ = a.shutdown()
			return fmt.Errorf("failed to start WebSocket server: %w", err)
		}
	}

	if a.deviceWatcher != nil {
		if err := a.deviceWatcher.Start(ctx); err != nil {
			log.Warn().Err(err).Str("device", a.opener.Device()).Msg("device watcher unavailable, using interval retry")
		}
	}

	a.reportMissingDevice()
	a.printConnectionInfo()

	err := a.source.Run(ctx, a.dispatcher())

	if shutdownErr := a.shutdown(); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("error during shutdown")
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// dispatcher builds the token sink for the configured relay mode.
func (a *App) dispatcher() ports.Dispatcher {
	switch {
	case a.forwarder != nil && a.hub != nil:
		return dispatch.Multi{a.forwarder, a.hub}
	case a.hub != nil:
		return a.hub
	default:
		return a.forwarder
	}
}

// shutdown stops everything that Start brought up. The serial port is
// already closed by the time it runs.
func (a *App) shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	log.Info().Msg("shutting down...")

	var errs []error

	if a.deviceWatcher != nil {
		if err := a.deviceWatcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop device watcher: %w", err))
		}
	}

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.server.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop WebSocket server: %w", err))
		}
		cancel()
	}

	if a.hub != nil {
		if err := a.hub.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop event hub: %w", err))
		}
	}

	return errors.Join(errs...)
}

// reportMissingDevice lists candidate ports when the configured device is
// not there yet. The source keeps retrying regardless.
func (a *App) reportMissingDevice() {
	device := a.opener.Device()
	if _, err := os.Stat(device); err == nil {
		return
	}

	candidates, err := serial.ListPorts()
	if err != nil {
		log.Debug().Err(err).Msg("could not list serial ports")
		return
	}
	log.Warn().
		Str("device", device).
		Strs("available", candidates).
		Msg("serial device not found, will keep retrying")
}

func (a *App) printConnectionInfo() {
	if a.server == nil {
		fmt.Fprintf(a.out, "\n  Forwarding cards from %s to %s\n\n", a.opener.Device(), a.forwarder.URL())
		return
	}

	a.qrGenerator = pairing.NewQRGenerator(a.cfg.Server.Host, a.serverPort(), a.opener.Device())
	a.qrGenerator.PrintBanner(a.out, a.cfg.Pairing.ShowQRInTerminal)
	if a.forwarder != nil {
		fmt.Fprintf(a.out, "  Also forwarding cards to %s\n\n", a.forwarder.URL())
	}
}

// serverPort returns the bound listener port, which differs from the
// configured one when port 0 was requested.
func (a *App) serverPort() int {
	_, portStr, err := net.SplitHostPort(a.server.Addr())
	if err != nil {
		return a.cfg.Server.Port
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return a.cfg.Server.Port
	}
	return port
}

// ServerAddr returns the WebSocket listener address, or "" when the relay
// does not broadcast.
func (a *App) ServerAddr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// GetHub returns the event hub, or nil when the relay does not broadcast.
func (a *App) GetHub() *hub.Hub {
	return a.hub
}

// GetConfig returns the configuration.
func (a *App) GetConfig() *config.Config {
	return a.cfg
}

// IsRunning reports whether Start is in progress.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}
