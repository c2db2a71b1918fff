package usecase

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/core/ports"
)

const (
	branchProjects    = "projects"
	branchCalls       = "calls"
	branchResearchers = "researchers"

	defaultCurrency = "EUR"
)

// HybridRetriever fans a query out to the project and call vector indexes and
// the researcher keyword search, then merges the survivors into one ranking.
type HybridRetriever struct {
	store        ports.RecordStore
	observer     ports.SearchObserver
	storeTimeout time.Duration
}

func NewHybridRetriever(store ports.RecordStore, observer ports.SearchObserver, storeTimeout time.Duration) *HybridRetriever {
	if observer == nil {
		observer = noopObserver{}
	}
	return &HybridRetriever{
		store:        store,
		observer:     observer,
		storeTimeout: storeTimeout,
	}
}

// Retrieve runs the three branches concurrently. A failing vector branch
// contributes no results; a failing keyword branch fails the retrieval with
// domain.ErrStore.
func (r *HybridRetriever) Retrieve(
	ctx context.Context,
	vector []float32,
	query string,
	cfg domain.PipelineConfig,
) ([]domain.SearchResult, error) {
	cfg = cfg.Normalize()

	var projects, calls, researchers []domain.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		projects = r.projectBranch(gctx, vector, cfg)
		return nil
	})
	g.Go(func() error {
		calls = r.callBranch(gctx, vector, cfg)
		return nil
	})
	g.Go(func() error {
		var err error
		researchers, err = r.researcherBranch(gctx, query, cfg)
		return err
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapError(domain.ErrStore, "retrieve researchers", err)
	}

	return mergeRanked(cfg.ResultCap, projects, calls, researchers), nil
}

func (r *HybridRetriever) projectBranch(ctx context.Context, vector []float32, cfg domain.PipelineConfig) []domain.SearchResult {
	if isDegenerateVector(vector) {
		r.observer.ObserveBranch(branchProjects, 0, nil)
		return nil
	}

	branchCtx, cancel := r.branchContext(ctx)
	defer cancel()

	hits, err := r.store.SimilarProjects(branchCtx, vector, cfg.TopK)
	if err != nil {
		slog.Warn("retrieval_branch_degraded", "branch", branchProjects, "error", err)
		r.observer.ObserveBranch(branchProjects, 0, err)
		return nil
	}

	out := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if belowThreshold(hit.Score, cfg.Threshold) {
			continue
		}
		out = append(out, projectResult(hit, cfg.IncludeMetadata))
	}
	r.observer.ObserveBranch(branchProjects, len(out), nil)
	return out
}

func (r *HybridRetriever) callBranch(ctx context.Context, vector []float32, cfg domain.PipelineConfig) []domain.SearchResult {
	if isDegenerateVector(vector) {
		r.observer.ObserveBranch(branchCalls, 0, nil)
		return nil
	}

	branchCtx, cancel := r.branchContext(ctx)
	defer cancel()

	hits, err := r.store.SimilarCalls(branchCtx, vector, cfg.TopK)
	if err != nil {
		slog.Warn("retrieval_branch_degraded", "branch", branchCalls, "error", err)
		r.observer.ObserveBranch(branchCalls, 0, err)
		return nil
	}

	out := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if belowThreshold(hit.Score, cfg.Threshold) {
			continue
		}
		out = append(out, callResult(hit, cfg.IncludeMetadata))
	}
	r.observer.ObserveBranch(branchCalls, len(out), nil)
	return out
}

func (r *HybridRetriever) researcherBranch(ctx context.Context, query string, cfg domain.PipelineConfig) ([]domain.SearchResult, error) {
	branchCtx, cancel := r.branchContext(ctx)
	defer cancel()

	people, err := r.store.SearchResearchers(branchCtx, query, cfg.TopK)
	if err != nil {
		r.observer.ObserveBranch(branchResearchers, 0, err)
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(people))
	for _, person := range people {
		out = append(out, researcherResult(person, cfg.KeywordScore, cfg.IncludeMetadata))
	}
	r.observer.ObserveBranch(branchResearchers, len(out), nil)
	return out, nil
}

func (r *HybridRetriever) branchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.storeTimeout > 0 {
		return context.WithTimeout(ctx, r.storeTimeout)
	}
	return context.WithCancel(ctx)
}

func isDegenerateVector(vector []float32) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}

func projectResult(hit domain.ScoredProject, withMetadata bool) domain.SearchResult {
	p := hit.Project
	source := p.AuthorName
	if source == "" {
		source = "Unknown author"
	}
	res := domain.SearchResult{
		Type:        domain.RecordProject,
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Source:      source,
		Status:      p.Status,
		Score:       clampScore(hit.Score),
	}
	if withMetadata && len(p.Keywords) > 0 {
		res.Metadata = &domain.SearchMetadata{Keywords: p.Keywords}
	}
	return res
}

func callResult(hit domain.ScoredCall, withMetadata bool) domain.SearchResult {
	c := hit.Call
	source := c.Institution
	if source == "" {
		source = "Unknown institution"
	}
	res := domain.SearchResult{
		Type:        domain.RecordCall,
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Source:      source,
		Status:      c.Status,
		Score:       clampScore(hit.Score),
	}
	if withMetadata {
		meta := &domain.SearchMetadata{
			Budget:   c.Budget,
			Deadline: c.Deadline,
			Website:  c.Website,
			Keywords: c.Keywords,
		}
		if c.Budget != nil {
			meta.Currency = defaultCurrency
		}
		if !meta.IsEmpty() {
			res.Metadata = meta
		}
	}
	return res
}

func researcherResult(person domain.Researcher, score float64, withMetadata bool) domain.SearchResult {
	source := person.Institution
	if source == "" {
		source = "Researcher profile"
	}
	res := domain.SearchResult{
		Type:        domain.RecordResearcher,
		ID:          person.ID,
		Title:       person.Name,
		Description: person.Bio,
		Source:      source,
		Score:       clampScore(score),
	}
	if withMetadata && len(person.Keywords) > 0 {
		res.Metadata = &domain.SearchMetadata{Keywords: person.Keywords}
	}
	return res
}

// belowThreshold also rejects NaN scores, which fail every comparison.
func belowThreshold(score, threshold float64) bool {
	return !(score >= threshold)
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
