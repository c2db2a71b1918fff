package domain

import (
	"time"
)

type SearchMetadata struct {
	Budget   *float64   `json:"budget,omitempty"`
	Currency string     `json:"currency,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Website  string     `json:"website,omitempty"`
	Keywords []string   `json:"keywords,omitempty"`
}

func (m *SearchMetadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.Budget == nil && m.Deadline == nil && m.Website == "" && len(m.Keywords) == 0
}

// SearchResult is the normalized view of a matched record. Score is a cosine
// similarity for vector matches and the configured sentinel for keyword ones.
type SearchResult struct {
	Type        RecordType      `json:"type"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Source      string          `json:"source"`
	Status      string          `json:"status,omitempty"`
	Score       float64         `json:"score"`
	Metadata    *SearchMetadata `json:"metadata,omitempty"`
}

// ScoredProject is a vector index hit already joined to its author.
type ScoredProject struct {
	Project Project
	Score   float64
}

// ScoredCall is a vector index hit already joined to its issuing institution.
type ScoredCall struct {
	Call  FundingCall
	Score float64
}

type SearchResponse struct {
	Answer       string         `json:"answer"`
	Results      []SearchResult `json:"results"`
	RefinedQuery string         `json:"refined_query"`
	Fallback     bool           `json:"fallback"`
}

type SearchLogEntry struct {
	ID           string        `json:"id"`
	Query        string        `json:"query"`
	RefinedQuery string        `json:"refined_query"`
	Profile      string        `json:"profile"`
	ResultCount  int           `json:"result_count"`
	Fallback     bool          `json:"fallback"`
	Duration     time.Duration `json:"duration_ns"`
	CreatedAt    time.Time     `json:"created_at"`
}
