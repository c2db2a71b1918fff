package usecase

import (
	"sort"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

// mergeRanked concatenates branch results in argument order and sorts them by
// score descending. Ties keep their concatenation order.
func mergeRanked(limit int, branches ...[]domain.SearchResult) []domain.SearchResult {
	total := 0
	for _, branch := range branches {
		total += len(branch)
	}

	out := make([]domain.SearchResult, 0, total)
	for _, branch := range branches {
		out = append(out, branch...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return trimResults(out, limit)
}

func trimResults(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
