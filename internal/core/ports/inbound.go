package ports

import (
	"context"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

// SearchService is the inbound contract for hybrid search and answer synthesis.
type SearchService interface {
	Synthesize(ctx context.Context, query, profile string) (*domain.SearchResponse, error)
	Search(ctx context.Context, query, profile string) (*domain.SearchResponse, error)
}

// SearchHistoryReader is the inbound read model for recorded searches.
type SearchHistoryReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.SearchLogEntry, error)
}

// RecordReindexer is the inbound contract for keeping record embeddings fresh.
type RecordReindexer interface {
	ReindexRecord(ctx context.Context, change domain.RecordChange) error
	ReindexAll(ctx context.Context, recordType domain.RecordType) (domain.ReindexReport, error)
}
