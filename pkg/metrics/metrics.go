// Package metrics defines the Prometheus collectors exported by the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatrelay"

// Request outcomes.
const (
	OutcomeCompleted    = "completed"
	OutcomeUpstreamHTTP = "upstream_http_error"
	OutcomeTransport    = "transport_error"
	OutcomeNoText       = "no_text"
	OutcomeRejected     = "rejected"
)

// Metrics holds the relay's collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	EventsTotal     *prometheus.CounterVec
	FramingTotal    *prometheus.CounterVec
	ParseErrors     prometheus.Counter
	StreamDuration  prometheus.Histogram
	InFlight        prometheus.Gauge
	ExchangeDropped prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Chat requests handled, by outcome",
			},
			[]string{"outcome"},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "SSE events written to clients, by kind",
			},
			[]string{"kind"},
		),
		FramingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_framing_total",
				Help:      "Upstream response bodies, by detected framing",
			},
			[]string{"framing"},
		),
		ParseErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_parse_errors_total",
				Help:      "Upstream lines skipped because they did not parse",
			},
		),
		StreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stream_duration_seconds",
				Help:      "Time from accepting a chat request to writing its done event",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "streams_in_flight",
				Help:      "Chat streams currently open",
			},
		),
		ExchangeDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exchange_events_dropped_total",
				Help:      "Exchange events dropped because the publish queue was full",
			},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.EventsTotal,
		m.FramingTotal,
		m.ParseErrors,
		m.StreamDuration,
		m.InFlight,
		m.ExchangeDropped,
	)

	return m
}
