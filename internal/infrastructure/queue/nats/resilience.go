package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

const publishOperation = "nats_publish"

// classifyNATSError retries connection-state failures; anything else (bad
// subject, payload too large) is a permanent publish error.
func classifyNATSError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	switch {
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Transient
	}
	return resilience.Permanent
}
