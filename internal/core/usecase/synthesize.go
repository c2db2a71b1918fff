package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/core/ports"
)

const (
	defaultMinQueryLength = 2
	searchLogTimeout      = 3 * time.Second
)

type SynthesisOptions struct {
	MinQueryLength  int
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// SearchSynthesisUseCase runs refine → embed → retrieve → prompt → generate.
type SearchSynthesisUseCase struct {
	refiner   *QueryRefiner
	embedder  ports.Embedder
	retriever *HybridRetriever
	generator ports.TextGenerator
	profiles  domain.Profiles
	searchLog ports.SearchLogStore
	opts      SynthesisOptions
}

func NewSearchSynthesisUseCase(
	refiner *QueryRefiner,
	embedder ports.Embedder,
	retriever *HybridRetriever,
	generator ports.TextGenerator,
	profiles domain.Profiles,
	searchLog ports.SearchLogStore,
	opts SynthesisOptions,
) *SearchSynthesisUseCase {
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = defaultMinQueryLength
	}
	if len(profiles) == 0 {
		profiles = domain.Profiles{domain.DefaultProfile: domain.DefaultPipelineConfig()}
	}
	return &SearchSynthesisUseCase{
		refiner:   refiner,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		profiles:  profiles,
		searchLog: searchLog,
		opts:      opts,
	}
}

type retrievalOutcome struct {
	query   string
	refined string
	cfg     domain.PipelineConfig
	results []domain.SearchResult
}

// Synthesize answers the query from retrieved records. An empty retrieval is
// answered through the fallback prompt and is not an error.
func (uc *SearchSynthesisUseCase) Synthesize(ctx context.Context, query, profile string) (*domain.SearchResponse, error) {
	start := time.Now()

	outcome, err := uc.retrieve(ctx, query, profile)
	if err != nil {
		return nil, err
	}

	fallback := len(outcome.results) == 0
	var prompt string
	if fallback {
		prompt = buildFallbackPrompt(outcome.refined, outcome.cfg.Threshold)
	} else {
		prompt = buildGroundingPrompt(
			outcome.query,
			outcome.refined,
			outcome.refined != outcome.query,
			BuildContextDocument(outcome.results),
		)
	}

	answer, err := uc.generate(ctx, prompt)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "synthesize answer", err)
	}
	if answer == "" {
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "synthesize answer", errors.New("empty generation"))
	}

	resp := &domain.SearchResponse{
		Answer:       answer,
		Results:      outcome.results,
		RefinedQuery: outcome.refined,
		Fallback:     fallback,
	}
	uc.recordSearch(ctx, outcome, fallback, time.Since(start))
	return resp, nil
}

// Search runs the retrieval half of the pipeline only.
func (uc *SearchSynthesisUseCase) Search(ctx context.Context, query, profile string) (*domain.SearchResponse, error) {
	outcome, err := uc.retrieve(ctx, query, profile)
	if err != nil {
		return nil, err
	}
	return &domain.SearchResponse{
		Results:      outcome.results,
		RefinedQuery: outcome.refined,
		Fallback:     len(outcome.results) == 0,
	}, nil
}

func (uc *SearchSynthesisUseCase) retrieve(ctx context.Context, query, profile string) (*retrievalOutcome, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < uc.opts.MinQueryLength {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"validate query",
			fmt.Errorf("query must be at least %d characters", uc.opts.MinQueryLength),
		)
	}

	cfg, ok := uc.profiles.Resolve(strings.TrimSpace(profile))
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve profile", fmt.Errorf("unknown profile %q", profile))
	}

	refined := uc.refiner.Refine(ctx, query)

	vector, err := uc.embed(ctx, refined)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "embed query", err)
	}

	results, err := uc.retriever.Retrieve(ctx, vector, refined, cfg)
	if err != nil {
		return nil, fmt.Errorf("hybrid retrieval: %w", err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	return &retrievalOutcome{
		query:   query,
		refined: refined,
		cfg:     cfg,
		results: results,
	}, nil
}

func (uc *SearchSynthesisUseCase) embed(ctx context.Context, text string) ([]float32, error) {
	if uc.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.EmbedTimeout)
		defer cancel()
	}
	return uc.embedder.EmbedQuery(ctx, text)
}

func (uc *SearchSynthesisUseCase) generate(ctx context.Context, prompt string) (string, error) {
	if uc.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.GenerateTimeout)
		defer cancel()
	}
	answer, err := uc.generator.GenerateFromPrompt(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (uc *SearchSynthesisUseCase) recordSearch(ctx context.Context, outcome *retrievalOutcome, fallback bool, duration time.Duration) {
	if uc.searchLog == nil {
		return
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), searchLogTimeout)
	defer cancel()

	entry := domain.SearchLogEntry{
		ID:           uuid.NewString(),
		Query:        outcome.query,
		RefinedQuery: outcome.refined,
		Profile:      outcome.cfg.Name,
		ResultCount:  len(outcome.results),
		Fallback:     fallback,
		Duration:     duration,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.searchLog.Append(logCtx, entry); err != nil {
		slog.Warn("search_log_append_failed", "error", err)
	}
}
