package usecase

import (
	"context"
	"sync"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

type embedderFake struct {
	mu      sync.Mutex
	queries []string
	vector  []float32
	err     error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for range texts {
		out = append(out, f.vectorOrDefault())
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vectorOrDefault(), nil
}

func (f *embedderFake) vectorOrDefault() []float32 {
	if f.vector != nil {
		return f.vector
	}
	return []float32{0.1, 0.2, 0.3}
}

type generatorFake struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *generatorFake) GenerateFromPrompt(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return "generated answer", nil
	}
	return respond(prompt)
}

func (f *generatorFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type storeFake struct {
	mu sync.Mutex

	projects    []domain.ScoredProject
	calls       []domain.ScoredCall
	researchers []domain.Researcher

	projectsErr    error
	callsErr       error
	researchersErr error

	vectorCalls  int
	keywordCalls int
	keywordQuery string
	limits       []int
}

func (f *storeFake) SimilarProjects(_ context.Context, _ []float32, limit int) ([]domain.ScoredProject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorCalls++
	f.limits = append(f.limits, limit)
	if f.projectsErr != nil {
		return nil, f.projectsErr
	}
	return f.projects, nil
}

func (f *storeFake) SimilarCalls(_ context.Context, _ []float32, limit int) ([]domain.ScoredCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorCalls++
	f.limits = append(f.limits, limit)
	if f.callsErr != nil {
		return nil, f.callsErr
	}
	return f.calls, nil
}

func (f *storeFake) SearchResearchers(_ context.Context, text string, limit int) ([]domain.Researcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywordCalls++
	f.keywordQuery = text
	f.limits = append(f.limits, limit)
	if f.researchersErr != nil {
		return nil, f.researchersErr
	}
	return f.researchers, nil
}

func (f *storeFake) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vectorCalls + f.keywordCalls
}

type searchLogFake struct {
	entries []domain.SearchLogEntry
	err     error
}

func (f *searchLogFake) Append(_ context.Context, entry domain.SearchLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *searchLogFake) ListRecent(context.Context, int) ([]domain.SearchLogEntry, error) {
	return f.entries, nil
}

type observerFake struct {
	mu          sync.Mutex
	refinements []string
	degraded    []string
}

func (f *observerFake) ObserveRefinement(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refinements = append(f.refinements, outcome)
}

func (f *observerFake) ObserveBranch(branch string, _ int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.degraded = append(f.degraded, branch)
	}
}
