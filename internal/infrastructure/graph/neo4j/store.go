package neo4j

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

const (
	defaultProjectIndex = "project_embeddings"
	defaultCallIndex    = "call_embeddings"
	embeddingProperty   = "embedding"
)

var indexNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var recordLabels = map[domain.RecordType]string{
	domain.RecordProject:    "Project",
	domain.RecordCall:       "FundingCall",
	domain.RecordResearcher: "Researcher",
}

type StoreOptions struct {
	ProjectIndex string
	CallIndex    string
}

// Store serves similarity and keyword search over the platform graph.
type Store struct {
	runner       Runner
	projectIndex string
	callIndex    string
}

func NewStore(runner Runner, opts StoreOptions) (*Store, error) {
	if runner == nil {
		return nil, errors.New("neo4j runner is required")
	}
	if opts.ProjectIndex == "" {
		opts.ProjectIndex = defaultProjectIndex
	}
	if opts.CallIndex == "" {
		opts.CallIndex = defaultCallIndex
	}
	for _, name := range []string{opts.ProjectIndex, opts.CallIndex} {
		if !indexNamePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid vector index name %q", name)
		}
	}
	return &Store{
		runner:       runner,
		projectIndex: opts.ProjectIndex,
		callIndex:    opts.CallIndex,
	}, nil
}

const similarProjectsCypher = `
CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node, score
OPTIONAL MATCH (author:Researcher)-[:AUTHORED]->(node)
WITH node, score, head(collect(author.name)) AS author
RETURN node.id AS id, node.title AS title, node.description AS description,
       node.status AS status, node.keywords AS keywords, author, score
ORDER BY score DESC`

func (s *Store) SimilarProjects(ctx context.Context, vector []float32, limit int) ([]domain.ScoredProject, error) {
	rows, err := s.runner.Run(ctx, similarProjectsCypher, map[string]any{
		"index":  s.projectIndex,
		"k":      int64(limit),
		"vector": toFloat64s(vector),
	}, false)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "similar projects", err)
	}

	out := make([]domain.ScoredProject, 0, len(rows))
	for _, row := range rows {
		score, _ := asFloat(row["score"])
		out = append(out, domain.ScoredProject{
			Project: domain.Project{
				ID:          asString(row["id"]),
				Title:       asString(row["title"]),
				Description: asString(row["description"]),
				Status:      asString(row["status"]),
				AuthorName:  asString(row["author"]),
				Keywords:    asStrings(row["keywords"]),
			},
			Score: score,
		})
	}
	return out, nil
}

const similarCallsCypher = `
CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node, score
OPTIONAL MATCH (inst:Institution)-[:ISSUED]->(node)
WITH node, score, head(collect(inst.name)) AS institution
RETURN node.id AS id, node.title AS title, node.description AS description,
       node.status AS status, node.budget AS budget, node.deadline AS deadline,
       node.website AS website, node.keywords AS keywords, institution, score
ORDER BY score DESC`

func (s *Store) SimilarCalls(ctx context.Context, vector []float32, limit int) ([]domain.ScoredCall, error) {
	rows, err := s.runner.Run(ctx, similarCallsCypher, map[string]any{
		"index":  s.callIndex,
		"k":      int64(limit),
		"vector": toFloat64s(vector),
	}, false)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "similar calls", err)
	}

	out := make([]domain.ScoredCall, 0, len(rows))
	for _, row := range rows {
		score, _ := asFloat(row["score"])
		out = append(out, domain.ScoredCall{
			Call: domain.FundingCall{
				ID:          asString(row["id"]),
				Title:       asString(row["title"]),
				Description: asString(row["description"]),
				Status:      asString(row["status"]),
				Institution: asString(row["institution"]),
				Budget:      asFloatPtr(row["budget"]),
				Deadline:    asTime(row["deadline"]),
				Website:     asString(row["website"]),
				Keywords:    asStrings(row["keywords"]),
			},
			Score: score,
		})
	}
	return out, nil
}

const searchResearchersCypher = `
MATCH (r:Researcher)
WHERE toLower(coalesce(r.name, '')) CONTAINS toLower($q)
   OR toLower(coalesce(r.bio, '')) CONTAINS toLower($q)
OPTIONAL MATCH (r)-[:AFFILIATED_WITH]->(inst:Institution)
WITH r, head(collect(inst.name)) AS institution
RETURN r.id AS id, r.name AS name, r.bio AS bio, r.keywords AS keywords, institution
ORDER BY r.name
LIMIT $limit`

func (s *Store) SearchResearchers(ctx context.Context, text string, limit int) ([]domain.Researcher, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	rows, err := s.runner.Run(ctx, searchResearchersCypher, map[string]any{
		"q":     text,
		"limit": int64(limit),
	}, false)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "search researchers", err)
	}

	out := make([]domain.Researcher, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Researcher{
			ID:          asString(row["id"]),
			Name:        asString(row["name"]),
			Bio:         asString(row["bio"]),
			Institution: asString(row["institution"]),
			Keywords:    asStrings(row["keywords"]),
		})
	}
	return out, nil
}
