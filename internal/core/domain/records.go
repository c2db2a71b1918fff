package domain

import "time"

type RecordType string

const (
	RecordProject    RecordType = "project"
	RecordCall       RecordType = "call"
	RecordResearcher RecordType = "researcher"
)

func ParseRecordType(s string) (RecordType, bool) {
	switch RecordType(s) {
	case RecordProject, RecordCall, RecordResearcher:
		return RecordType(s), true
	default:
		return "", false
	}
}

// Embedded reports whether records of this type carry a vector embedding.
func (t RecordType) Embedded() bool {
	return t == RecordProject || t == RecordCall
}

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Embedding   []float32 `json:"-"`
}

type FundingCall struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status,omitempty"`
	Institution string     `json:"institution,omitempty"`
	Budget      *float64   `json:"budget,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Website     string     `json:"website,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	Embedding   []float32  `json:"-"`
}

type Researcher struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Bio         string   `json:"bio,omitempty"`
	Institution string   `json:"institution,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// IndexableText is the text an embedded record is indexed under.
type IndexableText struct {
	Type RecordType
	ID   string
	Text string
}

// RecordChange is published by record CRUD collaborators after a write.
type RecordChange struct {
	Type RecordType `json:"type"`
	ID   string     `json:"id"`
}

type ReindexReport struct {
	Type    RecordType `json:"type"`
	Total   int        `json:"total"`
	Indexed int        `json:"indexed"`
	Failed  int        `json:"failed"`
}
