// Package metrics provides Prometheus instrumentation for the OpenAI client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/petal-labs/oai/core"
)

// Namespace prefixes every metric name.
const Namespace = "oai"

// Collector is a core.TelemetryHook that records request counts, latency,
// token usage and in-flight requests.
type Collector struct {
	// RequestsTotal counts finished operations by outcome ("success" or an
	// error kind).
	RequestsTotal *prometheus.CounterVec

	// RequestLatency tracks end-to-end operation latency in seconds. For
	// streams this includes the time spent reading the body.
	RequestLatency *prometheus.HistogramVec

	// TokensTotal counts tokens reported by the API.
	TokensTotal *prometheus.CounterVec

	// InFlight tracks operations that have started but not finished.
	InFlight *prometheus.GaugeVec
}

// NewCollector creates the metrics and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "requests_total",
				Help:      "Total number of API operations by outcome.",
			},
			[]string{"operation", "model", "outcome"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "request_latency_seconds",
				Help:      "End-to-end API operation latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation", "model"},
		),
		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "tokens_total",
				Help:      "Total number of tokens consumed.",
			},
			[]string{"operation", "model", "direction"}, // direction: "input" or "output"
		),
		InFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "requests_in_flight",
				Help:      "Number of API operations currently in flight.",
			},
			[]string{"operation"},
		),
	}
}

// OnRequestStart marks an operation in flight.
func (c *Collector) OnRequestStart(e core.RequestStartEvent) {
	c.InFlight.WithLabelValues(e.Operation).Inc()
}

// OnRequestEnd records the finished operation.
func (c *Collector) OnRequestEnd(e core.RequestEndEvent) {
	c.InFlight.WithLabelValues(e.Operation).Dec()
	c.RequestsTotal.WithLabelValues(e.Operation, e.Model, e.Outcome()).Inc()
	c.RequestLatency.WithLabelValues(e.Operation, e.Model).Observe(e.Duration().Seconds())

	if e.Usage.PromptTokens > 0 {
		c.TokensTotal.WithLabelValues(e.Operation, e.Model, "input").Add(float64(e.Usage.PromptTokens))
	}
	if e.Usage.CompletionTokens > 0 {
		c.TokensTotal.WithLabelValues(e.Operation, e.Model, "output").Add(float64(e.Usage.CompletionTokens))
	}
}

var _ core.TelemetryHook = (*Collector)(nil)
