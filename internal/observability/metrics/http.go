package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "research"

type HTTPServerMetrics struct {
	*upstreamMetrics

	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	searchRequestsTotal *prometheus.CounterVec
	searchResults       *prometheus.HistogramVec
	searchDuration      *prometheus.HistogramVec
	refinementsTotal    *prometheus.CounterVec
	branchHitsTotal     *prometheus.CounterVec
	branchDegraded      *prometheus.CounterVec
	embeddingCacheTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by traffic control, by reason.",
		},
		[]string{"service", "reason"},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful search requests by outcome.",
		},
		[]string{"service", "endpoint", "outcome"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of ranked results per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 20},
		},
		[]string{"service", "endpoint"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	refinementsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "refinements_total",
			Help:      "Query refinement attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	branchHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "branch_hits_total",
			Help:      "Raw hits returned by each retrieval branch before thresholding.",
		},
		[]string{"service", "branch"},
	)
	branchDegraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "branch_degraded_total",
			Help:      "Retrieval branches that failed and were degraded to empty results.",
		},
		[]string{"service", "branch"},
	)
	embeddingCacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Query embedding cache lookups by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		searchRequestsTotal,
		searchResults,
		searchDuration,
		refinementsTotal,
		branchHitsTotal,
		branchDegraded,
		embeddingCacheTotal,
	)

	return &HTTPServerMetrics{
		upstreamMetrics:     newUpstreamMetrics(registry, service),
		registry:            registry,
		service:             service,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		rejectedTotal:       rejectedTotal,
		searchRequestsTotal: searchRequestsTotal,
		searchResults:       searchResults,
		searchDuration:      searchDuration,
		refinementsTotal:    refinementsTotal,
		branchHitsTotal:     branchHitsTotal,
		branchDegraded:      branchDegraded,
		embeddingCacheTotal: embeddingCacheTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)
		m.requestTotal.WithLabelValues(m.service, r.Method, path, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded by using the matched chi route.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func (m *HTTPServerMetrics) RecordSearch(endpoint string, resultCount int, fallback bool, duration time.Duration) {
	outcome := "answered"
	if fallback {
		outcome = "fallback"
	}
	m.searchRequestsTotal.WithLabelValues(m.service, endpoint, outcome).Inc()
	m.searchResults.WithLabelValues(m.service, endpoint).Observe(float64(resultCount))
	m.searchDuration.WithLabelValues(m.service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) ObserveRefinement(outcome string) {
	m.refinementsTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) ObserveBranch(branch string, hits int, err error) {
	if err != nil {
		m.branchDegraded.WithLabelValues(m.service, branch).Inc()
		return
	}
	if hits > 0 {
		m.branchHitsTotal.WithLabelValues(m.service, branch).Add(float64(hits))
	}
}

func (m *HTTPServerMetrics) ObserveEmbeddingCache(result string) {
	m.embeddingCacheTotal.WithLabelValues(m.service, result).Inc()
}
