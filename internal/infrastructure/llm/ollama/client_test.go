package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

func TestGeneratorSendsPromptAndTemperature(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  grounded answer \n"}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(Options{BaseURL: server.URL, GenModel: "gen", EmbedModel: "embed", Temperature: 0.2}))
	answer, err := gen.GenerateFromPrompt(context.Background(), "which projects match?")
	if err != nil {
		t.Fatalf("GenerateFromPrompt() error = %v", err)
	}
	if answer != "grounded answer" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if captured["prompt"] != "which projects match?" || captured["model"] != "gen" || captured["stream"] != false {
		t.Fatalf("unexpected payload %+v", captured)
	}
	options, _ := captured["options"].(map[string]any)
	if options["temperature"] != 0.2 {
		t.Fatalf("expected temperature option, got %+v", captured["options"])
	}
}

func TestEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(Options{BaseURL: server.URL, EmbedModel: "embed"}))
	vector, err := embedder.EmbedQuery(context.Background(), "solar robots")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vector))
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadRequest)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(Options{BaseURL: server.URL, EmbedModel: "embed"}))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected HTTPStatusError, got %T", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary")
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})
	gen := NewGenerator(New(Options{BaseURL: server.URL, GenModel: "gen", Executor: exec}))

	answer, err := gen.GenerateFromPrompt(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateFromPrompt() error = %v", err)
	}
	if answer != "ok" || hits.Load() != 2 {
		t.Fatalf("expected retry to succeed, answer=%q hits=%d", answer, hits.Load())
	}
}

func TestGenerateServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer server.Close()

	gen := NewGenerator(New(Options{BaseURL: server.URL, GenModel: "gen"}))
	_, err := gen.GenerateFromPrompt(context.Background(), "prompt")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestErrorEnvelopeIsUnwrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nomic-embed-text\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(Options{BaseURL: server.URL, EmbedModel: "nomic-embed-text"}))
	_, err := embedder.EmbedQuery(context.Background(), "solar robots")

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.Body != `model "nomic-embed-text" not found, try pulling it first` {
		t.Fatalf("unexpected detail %q", statusErr.Body)
	}
}
