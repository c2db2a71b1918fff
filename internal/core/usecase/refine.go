package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/research-assistant/internal/core/ports"
)

const (
	refineOutcomeSkipped = "skipped"
	refineOutcomeRefined = "refined"
	refineOutcomeFailed  = "failed"
)

type RefinerOptions struct {
	MaxChars int
	MaxWords int
	Timeout  time.Duration
}

// QueryRefiner distills long or conversational input into a short search query.
type QueryRefiner struct {
	generator ports.TextGenerator
	observer  ports.SearchObserver
	opts      RefinerOptions
}

func NewQueryRefiner(generator ports.TextGenerator, observer ports.SearchObserver, opts RefinerOptions) *QueryRefiner {
	if opts.MaxChars <= 0 {
		opts.MaxChars = 50
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = 10
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &QueryRefiner{
		generator: generator,
		observer:  observer,
		opts:      opts,
	}
}

func (r *QueryRefiner) NeedsRefinement(query string) bool {
	return utf8.RuneCountInString(query) > r.opts.MaxChars || len(strings.Fields(query)) > r.opts.MaxWords
}

// Refine returns the distilled query, or the input unchanged when refinement
// is skipped or the generator fails.
func (r *QueryRefiner) Refine(ctx context.Context, query string) string {
	if !r.NeedsRefinement(query) {
		r.observer.ObserveRefinement(refineOutcomeSkipped)
		return query
	}

	callCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	raw, err := r.generator.GenerateFromPrompt(callCtx, buildRefinePrompt(query))
	if err != nil {
		slog.Warn("query_refine_failed", "error", err, "query_chars", utf8.RuneCountInString(query))
		r.observer.ObserveRefinement(refineOutcomeFailed)
		return query
	}

	refined := cleanRefinedQuery(raw)
	if refined == "" {
		slog.Warn("query_refine_empty", "query_chars", utf8.RuneCountInString(query))
		r.observer.ObserveRefinement(refineOutcomeFailed)
		return query
	}

	r.observer.ObserveRefinement(refineOutcomeRefined)
	return refined
}

func cleanRefinedQuery(raw string) string {
	out := strings.TrimSpace(raw)
	out = strings.Trim(out, "\"'`")
	return strings.TrimSpace(out)
}
