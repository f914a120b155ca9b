// Package forwarder relays each card token to the access-control
// application over HTTP and reports its decision.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
	"github.com/brianly1003/rfidbridge/internal/metrics"
)

const (
	// DefaultURL is the scan endpoint of the access-control application.
	DefaultURL = "http://localhost:9002/api/scan"

	// DefaultTimeout bounds one forward request.
	DefaultTimeout = 5 * time.Second

	// maxErrorBody caps how much of an error response is kept for logs.
	maxErrorBody = 512
)

// ScanRequest is the body posted for every token.
type ScanRequest struct {
	CardUID string `json:"cardUID"`
}

// Decision is the application's answer to a scan.
type Decision struct {
	IsAuthorized bool   `json:"isAuthorized"`
	Reason       string `json:"reason"`
}

// Options configures a Forwarder.
type Options struct {
	URL      string
	Timeout  time.Duration
	Client   *http.Client
	Reporter Reporter
	Metrics  *metrics.Metrics
}

// Forwarder implements ports.Dispatcher by posting tokens to a URL.
// Delivery problems are reported and never stop the relay.
type Forwarder struct {
	url      string
	timeout  time.Duration
	client   *http.Client
	reporter Reporter
	metrics  *metrics.Metrics
}

// New creates a Forwarder.
func New(opts Options) *Forwarder {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Reporter == nil {
		opts.Reporter = NewConsoleReporter()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Forwarder{
		url:      opts.URL,
		timeout:  opts.Timeout,
		client:   opts.Client,
		reporter: opts.Reporter,
		metrics:  opts.Metrics,
	}
}

// URL returns the endpoint tokens are posted to.
func (f *Forwarder) URL() string {
	return f.url
}

// Dispatch posts the token and reports the outcome. It only returns an
// error when ctx is done.
func (f *Forwarder) Dispatch(ctx context.Context, token events.Token) error {
	decision, err := f.Forward(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.metrics.ForwardRequests.WithLabelValues(resultFor(err)).Inc()
		log.Warn().Err(err).Str("token", token.String()).Str("url", f.url).Msg("forward failed")
		f.reporter.ReportError(token, err)
		return nil
	}

	f.metrics.ForwardRequests.WithLabelValues(metrics.ResultOK).Inc()
	log.Info().
		Str("token", token.String()).
		Bool("authorized", decision.IsAuthorized).
		Str("reason", decision.Reason).
		Msg("access decision")
	f.reporter.ReportDecision(token, decision)
	return nil
}

// Forward posts one token and decodes the decision. Failures are returned
// as *domain.ForwardError.
func (f *Forwarder) Forward(ctx context.Context, token events.Token) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := json.Marshal(ScanRequest{CardUID: token.String()})
	if err != nil {
		return Decision{}, &domain.ForwardError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, &domain.ForwardError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Decision{}, &domain.ForwardError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Decision{}, &domain.ForwardError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(snippet)),
		}
	}

	var decision Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return Decision{}, &domain.ForwardError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return decision, nil
}

func resultFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.ResultTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return metrics.ResultTimeout
	}
	return metrics.ResultError
}

var _ ports.Dispatcher = (*Forwarder)(nil)
