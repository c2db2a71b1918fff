package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

const maxHistoryLimit = 200

// SearchLogRepository persists one row per answered search.
type SearchLogRepository struct {
	db *sql.DB
}

func NewSearchLogRepository(db *sql.DB) *SearchLogRepository {
	return &SearchLogRepository{db: db}
}

func (r *SearchLogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS search_log (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	refined_query TEXT NOT NULL,
	profile TEXT NOT NULL,
	result_count INTEGER NOT NULL,
	fallback BOOLEAN NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_log_created_at ON search_log(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SearchLogRepository) Append(ctx context.Context, entry domain.SearchLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO search_log (
	id, query, refined_query, profile, result_count, fallback, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		entry.ID, entry.Query, entry.RefinedQuery, entry.Profile, entry.ResultCount,
		entry.Fallback, entry.Duration.Milliseconds(), entry.CreatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStore, "insert search log", err)
	}
	return nil
}

func (r *SearchLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.SearchLogEntry, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, query, refined_query, profile, result_count, fallback, duration_ms, created_at
FROM search_log
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "list search log", err)
	}
	defer rows.Close()

	out := make([]domain.SearchLogEntry, 0, limit)
	for rows.Next() {
		var entry domain.SearchLogEntry
		var durationMS int64
		if err := rows.Scan(
			&entry.ID, &entry.Query, &entry.RefinedQuery, &entry.Profile,
			&entry.ResultCount, &entry.Fallback, &durationMS, &entry.CreatedAt,
		); err != nil {
			return nil, domain.WrapError(domain.ErrStore, "scan search log", err)
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStore, "iterate search log", err)
	}
	return out, nil
}
