package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

type synthesisFixture struct {
	embedder  *embedderFake
	generator *generatorFake
	store     *storeFake
	searchLog *searchLogFake
	uc        *SearchSynthesisUseCase
}

func newSynthesisFixture(store *storeFake, generator *generatorFake) *synthesisFixture {
	if store == nil {
		store = &storeFake{}
	}
	if generator == nil {
		generator = &generatorFake{}
	}
	f := &synthesisFixture{
		embedder:  &embedderFake{},
		generator: generator,
		store:     store,
		searchLog: &searchLogFake{},
	}
	profiles := domain.Profiles{
		domain.DefaultProfile: domain.DefaultPipelineConfig(),
		"assistant":           {TopK: 3, IncludeMetadata: false},
	}
	f.uc = NewSearchSynthesisUseCase(
		NewQueryRefiner(generator, nil, RefinerOptions{}),
		f.embedder,
		NewHybridRetriever(store, nil, 0),
		generator,
		profiles,
		f.searchLog,
		SynthesisOptions{},
	)
	return f
}

func TestSynthesizeRejectsShortQueryWithoutUpstreamCalls(t *testing.T) {
	f := newSynthesisFixture(nil, nil)

	for _, q := range []string{"", " ", "a", " b "} {
		_, err := f.uc.Synthesize(context.Background(), q, "")
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("query %q: expected ErrInvalidInput, got %v", q, err)
		}
	}
	if len(f.embedder.queries) != 0 || f.generator.calls() != 0 || f.store.totalCalls() != 0 {
		t.Fatalf("expected no upstream calls")
	}
}

func TestSynthesizeShortQueryFallsBackWhenNothingMatches(t *testing.T) {
	f := newSynthesisFixture(&storeFake{
		projects: []domain.ScoredProject{{Project: domain.Project{ID: "p-1"}, Score: 0.5}},
	}, &generatorFake{respond: func(string) (string, error) {
		return "Sorry, nothing matched. Try rephrasing.", nil
	}})

	resp, err := f.uc.Synthesize(context.Background(), "AI", "")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(f.embedder.queries) != 1 || f.embedder.queries[0] != "AI" {
		t.Fatalf("expected embed(\"AI\"), got %v", f.embedder.queries)
	}
	if f.generator.calls() != 1 {
		t.Fatalf("expected only the synthesis call, got %d", f.generator.calls())
	}
	if !resp.Fallback || resp.Answer == "" {
		t.Fatalf("expected non-empty fallback answer, got %+v", resp)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", resp.Results)
	}
	if !strings.Contains(f.generator.prompts[0], "no projects, funding calls or researchers") {
		t.Fatalf("expected fallback prompt, got %s", f.generator.prompts[0])
	}
}

func TestSynthesizeEmbedsRefinedTextForLongQuery(t *testing.T) {
	query := "Hi! I hope you are well. I'm looking for any funding for renewable energy robotics, ideally something open soon."
	gen := &generatorFake{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Search query:") {
			return "renewable energy robotics funding", nil
		}
		return "answer", nil
	}}
	f := newSynthesisFixture(&storeFake{
		calls: []domain.ScoredCall{{Call: domain.FundingCall{ID: "c-1", Title: "Robotics Call"}, Score: 0.8}},
	}, gen)

	resp, err := f.uc.Synthesize(context.Background(), query, "")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if gen.calls() != 2 {
		t.Fatalf("expected refine + synthesis calls, got %d", gen.calls())
	}
	if f.embedder.queries[0] != "renewable energy robotics funding" {
		t.Fatalf("expected embedding on refined text, got %q", f.embedder.queries[0])
	}
	if resp.RefinedQuery != "renewable energy robotics funding" {
		t.Fatalf("unexpected refined query %q", resp.RefinedQuery)
	}
	grounding := gen.prompts[1]
	if !strings.Contains(grounding, query) || !strings.Contains(grounding, "Interpreted search intent: renewable energy robotics funding") {
		t.Fatalf("expected raw query and refined intent in grounding prompt:\n%s", grounding)
	}
}

func TestSynthesizeGroundsAnswerOnProjectAndCall(t *testing.T) {
	f := newSynthesisFixture(&storeFake{
		projects: []domain.ScoredProject{{Project: domain.Project{ID: "p-1", Title: "Solar Swarm Robots", AuthorName: "Ada"}, Score: 0.91}},
		calls:    []domain.ScoredCall{{Call: domain.FundingCall{ID: "c-1", Title: "Green Automation Call", Institution: "EU"}, Score: 0.78}},
	}, nil)

	resp, err := f.uc.Synthesize(context.Background(), "solar robots", "")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if resp.Fallback {
		t.Fatalf("did not expect fallback")
	}
	if len(resp.Results) != 2 || resp.Results[0].ID != "p-1" || resp.Results[1].ID != "c-1" {
		t.Fatalf("unexpected results %+v", resp.Results)
	}

	prompt := f.generator.prompts[0]
	for _, want := range []string{"Solar Swarm Robots", "Green Automation Call", "point out the connection", "Cite exact titles"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("grounding prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Interpreted search intent") {
		t.Fatalf("did not expect refined intent annotation for unrefined query")
	}
	if len(f.searchLog.entries) != 1 || f.searchLog.entries[0].ResultCount != 2 {
		t.Fatalf("expected one search log entry, got %+v", f.searchLog.entries)
	}
}

func TestSynthesizeEmbeddingFailureIsUpstreamUnavailable(t *testing.T) {
	f := newSynthesisFixture(nil, nil)
	f.embedder.err = errors.New("connection refused")

	resp, err := f.uc.Synthesize(context.Background(), "graph learning", "")
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if resp != nil {
		t.Fatalf("expected no partial response")
	}
	if f.store.totalCalls() != 0 || f.generator.calls() != 0 {
		t.Fatalf("expected retrieval and synthesis to be skipped")
	}
}

func TestSynthesizeGenerationFailureIsUpstreamUnavailable(t *testing.T) {
	gen := &generatorFake{respond: func(string) (string, error) { return "", errors.New("503") }}
	f := newSynthesisFixture(&storeFake{
		projects: []domain.ScoredProject{{Project: domain.Project{ID: "p-1"}, Score: 0.9}},
	}, gen)

	resp, err := f.uc.Synthesize(context.Background(), "graph learning", "")
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if resp != nil {
		t.Fatalf("expected no answer on synthesis failure")
	}
	if len(f.searchLog.entries) != 0 {
		t.Fatalf("failed synthesis must not be logged")
	}
}

func TestSynthesizeRefinementFailureStillAnswers(t *testing.T) {
	gen := &generatorFake{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Search query:") {
			return "", errors.New("timeout")
		}
		return "answer", nil
	}}
	f := newSynthesisFixture(nil, gen)
	query := strings.Repeat("marine biology ", 6)

	resp, err := f.uc.Synthesize(context.Background(), query, "")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if f.embedder.queries[0] != strings.TrimSpace(query) {
		t.Fatalf("expected raw query embedded, got %q", f.embedder.queries[0])
	}
	if resp.Answer != "answer" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
}

func TestSynthesizeUnknownProfileIsInvalidInput(t *testing.T) {
	f := newSynthesisFixture(nil, nil)
	_, err := f.uc.Synthesize(context.Background(), "graph learning", "nope")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSynthesizeUsesProfileLimits(t *testing.T) {
	f := newSynthesisFixture(nil, nil)
	if _, err := f.uc.Synthesize(context.Background(), "graph learning", "assistant"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	for _, limit := range f.store.limits {
		if limit != 3 {
			t.Fatalf("expected assistant profile limit 3, got %d", limit)
		}
	}
}

func TestSearchSkipsSynthesis(t *testing.T) {
	f := newSynthesisFixture(&storeFake{
		projects: []domain.ScoredProject{{Project: domain.Project{ID: "p-1"}, Score: 0.9}},
	}, nil)

	resp, err := f.uc.Search(context.Background(), "graph learning", "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if f.generator.calls() != 0 {
		t.Fatalf("expected no generator calls, got %d", f.generator.calls())
	}
	if len(resp.Results) != 1 || resp.Answer != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
