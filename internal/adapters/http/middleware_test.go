package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddlewareKeepsValidInboundID(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "trace-abc.123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if seen != "trace-abc.123" || res.Header().Get(requestIDHeader) != "trace-abc.123" {
		t.Fatalf("expected inbound id to be kept, context=%q header=%q", seen, res.Header().Get(requestIDHeader))
	}
}

func TestRequestIDMiddlewareReplacesUnsafeInboundID(t *testing.T) {
	handler := requestIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for _, inbound := range []string{"", "bad id\nwith newline", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, inbound)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		got := res.Header().Get(requestIDHeader)
		if got == "" || got == inbound {
			t.Fatalf("expected generated id for %q, got %q", inbound, got)
		}
	}
}

func TestResponseRecorderKeepsFirstStatus(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	if _, err := rec.Write([]byte("body")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if rec.status != http.StatusAccepted || rec.written != 4 {
		t.Fatalf("unexpected recorder state: status=%d written=%d", rec.status, rec.written)
	}
}
