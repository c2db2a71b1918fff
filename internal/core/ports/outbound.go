package ports

import (
	"context"
	"io"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

// Embedder builds vectors for record text and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
}

// RecordStore serves the retrieval branches of a search.
type RecordStore interface {
	SimilarProjects(ctx context.Context, vector []float32, limit int) ([]domain.ScoredProject, error)
	SimilarCalls(ctx context.Context, vector []float32, limit int) ([]domain.ScoredCall, error)
	SearchResearchers(ctx context.Context, text string, limit int) ([]domain.Researcher, error)
}

// RecordIndexStore reads indexable text and writes embeddings back to records.
type RecordIndexStore interface {
	LoadIndexable(ctx context.Context, recordType domain.RecordType, id string) (domain.IndexableText, error)
	ListIndexable(ctx context.Context, recordType domain.RecordType) ([]domain.IndexableText, error)
	SetEmbedding(ctx context.Context, recordType domain.RecordType, id string, vector []float32) error
}

// SearchLogStore persists completed searches.
type SearchLogStore interface {
	Append(ctx context.Context, entry domain.SearchLogEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.SearchLogEntry, error)
}

// RecordEventQueue publishes/consumes record change events.
type RecordEventQueue interface {
	PublishRecordChanged(ctx context.Context, change domain.RecordChange) error
	SubscribeRecordChanged(ctx context.Context, handler func(context.Context, domain.RecordChange) error) error
}

// SearchObserver receives pipeline-internal outcomes for metrics.
type SearchObserver interface {
	ObserveRefinement(outcome string)
	ObserveBranch(branch string, hits int, err error)
}

// ResultExporter renders ranked results into a downloadable document.
type ResultExporter interface {
	ContentType() string
	Export(w io.Writer, query string, resp *domain.SearchResponse) error
}
