package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

func embeddedLabel(recordType domain.RecordType) (string, error) {
	if !recordType.Embedded() {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve label", fmt.Errorf("record type %q has no embeddings", recordType))
	}
	return recordLabels[recordType], nil
}

func indexableCypher(label string, single bool) string {
	filter := ""
	if single {
		filter = " {id: $id}"
	}
	return fmt.Sprintf(`
MATCH (n:%s%s)
RETURN n.id AS id, n.title AS title, n.description AS description, n.keywords AS keywords
ORDER BY n.id`, label, filter)
}

func indexableFromRow(recordType domain.RecordType, row map[string]any) domain.IndexableText {
	parts := make([]string, 0, 3)
	for _, field := range []string{asString(row["title"]), asString(row["description"])} {
		if s := strings.TrimSpace(field); s != "" {
			parts = append(parts, s)
		}
	}
	if keywords := asStrings(row["keywords"]); len(keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(keywords, ", "))
	}
	return domain.IndexableText{
		Type: recordType,
		ID:   asString(row["id"]),
		Text: strings.Join(parts, "\n\n"),
	}
}

func (s *Store) LoadIndexable(ctx context.Context, recordType domain.RecordType, id string) (domain.IndexableText, error) {
	label, err := embeddedLabel(recordType)
	if err != nil {
		return domain.IndexableText{}, err
	}

	rows, err := s.runner.Run(ctx, indexableCypher(label, true), map[string]any{"id": id}, false)
	if err != nil {
		return domain.IndexableText{}, domain.WrapError(domain.ErrStore, "load indexable", err)
	}
	if len(rows) == 0 {
		return domain.IndexableText{}, domain.WrapError(domain.ErrNotFound, "load indexable", fmt.Errorf("%s %q not found", recordType, id))
	}
	return indexableFromRow(recordType, rows[0]), nil
}

func (s *Store) ListIndexable(ctx context.Context, recordType domain.RecordType) ([]domain.IndexableText, error) {
	label, err := embeddedLabel(recordType)
	if err != nil {
		return nil, err
	}

	rows, err := s.runner.Run(ctx, indexableCypher(label, false), nil, false)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStore, "list indexable", err)
	}
	out := make([]domain.IndexableText, 0, len(rows))
	for _, row := range rows {
		out = append(out, indexableFromRow(recordType, row))
	}
	return out, nil
}

func (s *Store) SetEmbedding(ctx context.Context, recordType domain.RecordType, id string, vector []float32) error {
	label, err := embeddedLabel(recordType)
	if err != nil {
		return err
	}

	cypher := fmt.Sprintf(`
MATCH (n:%s {id: $id})
CALL db.create.setNodeVectorProperty(n, '%s', $vector)
RETURN n.id AS id`, label, embeddingProperty)

	rows, err := s.runner.Run(ctx, cypher, map[string]any{
		"id":     id,
		"vector": toFloat64s(vector),
	}, true)
	if err != nil {
		return domain.WrapError(domain.ErrStore, "set embedding", err)
	}
	if len(rows) == 0 {
		return domain.WrapError(domain.ErrNotFound, "set embedding", fmt.Errorf("%s %q not found", recordType, id))
	}
	return nil
}

// EnsureIndexes creates the project and call vector indexes when missing.
func (s *Store) EnsureIndexes(ctx context.Context, dimensions int, similarity string) error {
	if dimensions <= 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", dimensions)
	}
	if similarity == "" {
		similarity = "cosine"
	}
	if similarity != "cosine" && similarity != "euclidean" {
		return fmt.Errorf("unsupported vector similarity %q", similarity)
	}

	for _, idx := range []struct {
		name  string
		label string
	}{
		{s.projectIndex, recordLabels[domain.RecordProject]},
		{s.callIndex, recordLabels[domain.RecordCall]},
	} {
		cypher := fmt.Sprintf(
			"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s) "+
				"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: '%s'}}",
			idx.name, idx.label, embeddingProperty, dimensions, similarity,
		)
		if _, err := s.runner.Run(ctx, cypher, nil, true); err != nil {
			return domain.WrapError(domain.ErrStore, "ensure vector index "+idx.name, err)
		}
	}
	return nil
}
