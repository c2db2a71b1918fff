package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	*upstreamMetrics

	registry *prometheus.Registry
	service  string

	reindexTotal    *prometheus.CounterVec
	reindexDuration *prometheus.HistogramVec
	reindexInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	reindexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reindex_total",
			Help:      "Total record reindex events by record type and status.",
		},
		[]string{"service", "type", "status"},
	)
	reindexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reindex_duration_seconds",
			Help:      "Record reindex duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	reindexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reindex_in_flight",
			Help:      "Number of in-flight reindex events.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(reindexTotal, reindexDuration, reindexInFlight)

	return &WorkerMetrics{
		upstreamMetrics: newUpstreamMetrics(registry, service),
		registry:        registry,
		service:         service,
		reindexTotal:    reindexTotal,
		reindexDuration: reindexDuration,
		reindexInFlight: reindexInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartReindex() {
	m.reindexInFlight.Inc()
}

func (m *WorkerMetrics) FinishReindex(recordType string, duration time.Duration, err error) {
	m.reindexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.reindexTotal.WithLabelValues(m.service, recordType, status).Inc()
	m.reindexDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}
