package mcpadapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

type fakeSearch struct {
	synthesizeCalls int
	searchCalls     int
	profile         string
	err             error
}

func (f *fakeSearch) Synthesize(_ context.Context, _ string, profile string) (*domain.SearchResponse, error) {
	f.synthesizeCalls++
	f.profile = profile
	return f.response()
}

func (f *fakeSearch) Search(_ context.Context, _ string, profile string) (*domain.SearchResponse, error) {
	f.searchCalls++
	f.profile = profile
	return f.response()
}

func (f *fakeSearch) response() (*domain.SearchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SearchResponse{
		Answer: "One funding call fits.",
		Results: []domain.SearchResult{
			{Type: domain.RecordCall, ID: "c1", Title: "Horizon AI", Source: "EU Commission", Score: 0.87},
		},
	}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = searchToolName
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestHandleSearchSynthesizesByDefault(t *testing.T) {
	search := &fakeSearch{}
	s := NewServer(search, "test")

	result, err := s.handleSearch(context.Background(), callRequest(map[string]any{
		"query":   "funding for machine learning",
		"profile": "assistant",
	}))
	if err != nil {
		t.Fatalf("handleSearch returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if search.synthesizeCalls != 1 || search.profile != "assistant" {
		t.Fatalf("expected synthesize with profile, got calls=%d profile=%q", search.synthesizeCalls, search.profile)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "One funding call fits.") || !strings.Contains(text, "1. [call] Horizon AI (EU Commission)") {
		t.Fatalf("unexpected text:\n%s", text)
	}
}

func TestHandleSearchRetrievalOnly(t *testing.T) {
	search := &fakeSearch{}
	s := NewServer(search, "test")

	if _, err := s.handleSearch(context.Background(), callRequest(map[string]any{
		"query":  "funding for machine learning",
		"answer": false,
	})); err != nil {
		t.Fatalf("handleSearch returned error: %v", err)
	}
	if search.searchCalls != 1 || search.synthesizeCalls != 0 {
		t.Fatalf("expected retrieval only, got search=%d synthesize=%d", search.searchCalls, search.synthesizeCalls)
	}
}

func TestHandleSearchMissingQuery(t *testing.T) {
	search := &fakeSearch{}
	s := NewServer(search, "test")

	result, err := s.handleSearch(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handleSearch returned error: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error")
	}
	if search.synthesizeCalls != 0 {
		t.Fatalf("service must not be called without query")
	}
}

func TestHandleSearchHidesUpstreamDetail(t *testing.T) {
	s := NewServer(&fakeSearch{
		err: domain.WrapError(domain.ErrUpstreamUnavailable, "embed query", errors.New("dial tcp 10.0.0.5:11434")),
	}, "test")

	result, err := s.handleSearch(context.Background(), callRequest(map[string]any{"query": "graph learning"}))
	if err != nil {
		t.Fatalf("handleSearch returned error: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error")
	}
	if text := resultText(t, result); strings.Contains(text, "10.0.0.5") {
		t.Fatalf("internal detail leaked: %q", text)
	}
}
