package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/research-assistant/internal/config"
	"github.com/kirillkom/research-assistant/internal/core/ports"
	"github.com/kirillkom/research-assistant/internal/observability/metrics"
)

const readinessTimeout = 2 * time.Second

type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies wires the router. Only Search is required.
type Dependencies struct {
	Search    ports.SearchService
	History   ports.SearchHistoryReader
	Exporter  ports.ResultExporter
	Readiness []ReadinessCheck
	Metrics   *metrics.HTTPServerMetrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() (http.Handler, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	if rt.deps.Metrics != nil {
		r.Use(rt.deps.Metrics.Middleware)
	}

	r.Get("/healthz", rt.healthz)
	r.Get("/readyz", rt.readyz)
	if rt.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(rt.rateLimitMiddleware())
		v1.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait(), rt.recordRejected)
		})
		v1.Use(bearerAuthMiddleware(rt.cfg.APIKey))
		v1.Use(validator.middleware)

		v1.Post("/search/synthesize", rt.synthesize)
		v1.Post("/search", rt.search)
		v1.Post("/search/export", rt.exportSearch)
		v1.Get("/search/history", rt.searchHistory)
	})

	return r, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(rt.deps.Readiness))
	status := http.StatusOK
	for _, check := range rt.deps.Readiness {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			status = http.StatusServiceUnavailable
			checks[check.Name] = err.Error()
			continue
		}
		checks[check.Name] = "ok"
	}

	overall := "ready"
	if status != http.StatusOK {
		overall = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}

func (rt *Router) recordRejected(reason string) {
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRejected(reason)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":      message,
		"request_id": requestIDFromContext(r.Context()),
	})
}
