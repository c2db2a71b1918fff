package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

const defaultHistoryLimit = 50

type searchRequest struct {
	Query   string `json:"query"`
	Profile string `json:"profile"`
}

func decodeSearchRequest(r *http.Request) (searchRequest, error) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return req, nil
}

func (rt *Router) synthesize(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearchRequest(r)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	start := time.Now()
	resp, err := rt.deps.Search.Synthesize(r.Context(), req.Query, req.Profile)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	rt.recordSearch("synthesize", resp, time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearchRequest(r)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	start := time.Now()
	resp, err := rt.deps.Search.Search(r.Context(), req.Query, req.Profile)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	rt.recordSearch("search", resp, time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) exportSearch(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Exporter == nil {
		writeError(w, r, http.StatusNotFound, "export is not enabled")
		return
	}
	req, err := decodeSearchRequest(r)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	start := time.Now()
	resp, err := rt.deps.Search.Search(r.Context(), req.Query, req.Profile)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	rt.recordSearch("export", resp, time.Since(start))

	var buf bytes.Buffer
	if err := rt.deps.Exporter.Export(&buf, req.Query, resp); err != nil {
		slog.Error("search_export_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", rt.deps.Exporter.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="search-results.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) searchHistory(w http.ResponseWriter, r *http.Request) {
	if rt.deps.History == nil {
		writeError(w, r, http.StatusNotFound, "search history is not enabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := rt.deps.History.ListRecent(r.Context(), limit)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.SearchLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (rt *Router) recordSearch(endpoint string, resp *domain.SearchResponse, duration time.Duration) {
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordSearch(endpoint, len(resp.Results), resp.Fallback, duration)
	}
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeError(w, r, status, publicErrorMessage(status, err))
}
