package metrics

import "github.com/prometheus/client_golang/prometheus"

// upstreamMetrics tracks retries and circuit breaker state of the model
// provider and queue calls. It is embedded by both metric sets so either can
// be handed to the resilience executor.
type upstreamMetrics struct {
	service      string
	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newUpstreamMetrics(registry *prometheus.Registry, service string) *upstreamMetrics {
	m := &upstreamMetrics{
		service: service,
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "retries_total",
				Help:      "Retried upstream calls by operation.",
			},
			[]string{"service", "operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "breaker_state",
				Help:      "Circuit breaker state by operation: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"service", "operation"},
		),
	}
	registry.MustRegister(m.retriesTotal, m.breakerState)
	return m
}

func (m *upstreamMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *upstreamMetrics) ObserveBreakerState(operation, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}
