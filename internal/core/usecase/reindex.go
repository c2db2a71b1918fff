package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/core/ports"
)

// ReindexUseCase keeps the embeddings of projects and funding calls in sync
// with their text.
type ReindexUseCase struct {
	store    ports.RecordIndexStore
	embedder ports.Embedder
	poolSize int
}

func NewReindexUseCase(store ports.RecordIndexStore, embedder ports.Embedder, poolSize int) *ReindexUseCase {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &ReindexUseCase{
		store:    store,
		embedder: embedder,
		poolSize: poolSize,
	}
}

func (uc *ReindexUseCase) ReindexRecord(ctx context.Context, change domain.RecordChange) error {
	if _, ok := domain.ParseRecordType(string(change.Type)); !ok {
		return domain.WrapError(domain.ErrInvalidInput, "reindex record", fmt.Errorf("unknown record type %q", change.Type))
	}
	if strings.TrimSpace(change.ID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "reindex record", errors.New("record id is required"))
	}
	if !change.Type.Embedded() {
		return nil
	}

	item, err := uc.store.LoadIndexable(ctx, change.Type, change.ID)
	if err != nil {
		return fmt.Errorf("load indexable %s/%s: %w", change.Type, change.ID, err)
	}
	return uc.index(ctx, item)
}

// ReindexAll re-embeds every record of the given type on a bounded worker
// pool. Individual failures are counted, not returned.
func (uc *ReindexUseCase) ReindexAll(ctx context.Context, recordType domain.RecordType) (domain.ReindexReport, error) {
	report := domain.ReindexReport{Type: recordType}
	if !recordType.Embedded() {
		return report, domain.WrapError(domain.ErrInvalidInput, "reindex all", fmt.Errorf("record type %q has no embeddings", recordType))
	}

	items, err := uc.store.ListIndexable(ctx, recordType)
	if err != nil {
		return report, fmt.Errorf("list indexable %s: %w", recordType, err)
	}
	report.Total = len(items)
	if len(items) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(uc.poolSize)
	if err != nil {
		return report, fmt.Errorf("create reindex pool: %w", err)
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		indexed atomic.Int64
		failed  atomic.Int64
	)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := uc.index(ctx, item); err != nil {
				failed.Add(1)
				slog.Warn("reindex_record_failed", "type", item.Type, "id", item.ID, "error", err)
				return
			}
			indexed.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			slog.Warn("reindex_submit_failed", "type", item.Type, "id", item.ID, "error", submitErr)
		}
	}
	wg.Wait()

	report.Indexed = int(indexed.Load())
	report.Failed = int(failed.Load())
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (uc *ReindexUseCase) index(ctx context.Context, item domain.IndexableText) error {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index record", errors.New("empty indexable text"))
	}

	vectors, err := uc.embedder.Embed(ctx, []string{text})
	if err != nil {
		return domain.WrapError(domain.ErrUpstreamUnavailable, "embed record", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return domain.WrapError(domain.ErrUpstreamUnavailable, "embed record", fmt.Errorf("expected 1 vector, got %d", len(vectors)))
	}

	if err := uc.store.SetEmbedding(ctx, item.Type, item.ID, vectors[0]); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}
