package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

func TestRecordChangeRoundTrip(t *testing.T) {
	payload, err := encodeRecordChange(domain.RecordChange{Type: domain.RecordCall, ID: "c-1"})
	if err != nil {
		t.Fatalf("encodeRecordChange() error = %v", err)
	}
	if string(payload) != `{"type":"call","id":"c-1"}` {
		t.Fatalf("unexpected payload %s", payload)
	}

	change, err := decodeRecordChange(payload)
	if err != nil {
		t.Fatalf("decodeRecordChange() error = %v", err)
	}
	if change.Type != domain.RecordCall || change.ID != "c-1" {
		t.Fatalf("unexpected change %+v", change)
	}
}

func TestEncodeRecordChangeRejectsInvalid(t *testing.T) {
	if _, err := encodeRecordChange(domain.RecordChange{Type: "paper", ID: "x"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := encodeRecordChange(domain.RecordChange{Type: domain.RecordProject}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDecodeRecordChangeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"doc-123", `{"type":"paper","id":"1"}`, `{"type":"project"}`} {
		if _, err := decodeRecordChange([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestPublishErrorsBecomeTemporary(t *testing.T) {
	err := resilience.MarkTemporary(publishOperation, fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed), classifyNATSError)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}

	err = resilience.MarkTemporary(publishOperation, errors.New("bad subject"), classifyNATSError)
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary")
	}

	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must not be retried or recorded")
	}
}
