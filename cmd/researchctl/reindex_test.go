package main

import (
	"testing"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

func TestParseEmbeddedTypes(t *testing.T) {
	types, err := parseEmbeddedTypes([]string{"project", "call"})
	if err != nil {
		t.Fatalf("parseEmbeddedTypes: %v", err)
	}
	if len(types) != 2 || types[0] != domain.RecordProject || types[1] != domain.RecordCall {
		t.Fatalf("unexpected types: %v", types)
	}

	for _, bad := range []string{"researcher", "grant"} {
		if _, err := parseEmbeddedTypes([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
