// Package metrics holds the Prometheus instruments for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rfidbridge"

// Delivery and forward result labels.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// Metrics groups every instrument the relay records.
type Metrics struct {
	LinesRead       prometheus.Counter
	TokensEmitted   prometheus.Counter
	ChatterLines    prometheus.Counter
	OpenFailures    prometheus.Counter
	Reconnects      prometheus.Counter
	Deliveries      *prometheus.CounterVec
	DispatchSeconds prometheus.Histogram
	Subscribers     prometheus.Gauge
	ForwardRequests *prometheus.CounterVec
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New creates and registers all relay metrics on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "lines_read_total",
			Help:      "Total number of non-empty lines read from the device.",
		}),
		TokensEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "tokens_emitted_total",
			Help:      "Total number of lines classified as tokens.",
		}),
		ChatterLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "chatter_lines_total",
			Help:      "Total number of lines discarded as device chatter.",
		}),
		OpenFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "open_failures_total",
			Help:      "Total number of failed attempts to open the device.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "reconnects_total",
			Help:      "Total number of times a connected device was lost.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_total",
			Help:      "Token deliveries to subscribers by result.",
		}, []string{"result"}),
		DispatchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "dispatch_duration_seconds",
			Help:      "Time to fan one token out to all subscribers.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Number of registered subscribers.",
		}),
		ForwardRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forward",
			Name:      "requests_total",
			Help:      "Forwarding requests by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.LinesRead,
		m.TokensEmitted,
		m.ChatterLines,
		m.OpenFailures,
		m.Reconnects,
		m.Deliveries,
		m.DispatchSeconds,
		m.Subscribers,
		m.ForwardRequests,
	)
	return m
}

// NewNop returns metrics registered on a private registry, for tests and
// callers that do not expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
