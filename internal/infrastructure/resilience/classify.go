package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

// ErrorClassification tells the executor whether to retry an error and
// whether it counts against the circuit breaker.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

var (
	// Transient failures: retry and count.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Permanent failures of the dependency: count, no retry.
	Permanent = ErrorClassification{Retryable: false, RecordFailure: true}
	// Rejected caused by the caller (bad request, cancellation): neither.
	Rejected = ErrorClassification{Retryable: false, RecordFailure: false}
)

// ClassifyCommon decides the cases every adapter treats alike. ok is false
// when the adapter has to look at its own error types.
func ClassifyCommon(err error) (class ErrorClassification, ok bool) {
	switch {
	case err == nil:
		return ErrorClassification{}, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Rejected, true
	case IsCircuitOpen(err), errors.Is(err, ErrAttemptTimeout):
		return Transient, true
	}
	return ErrorClassification{}, false
}

// ClassifyNetwork treats transport-level failures as transient.
func ClassifyNetwork(err error) (ErrorClassification, bool) {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient, true
	}
	return ErrorClassification{}, false
}

// ClassifyHTTPStatus maps a provider status code to a classification.
func ClassifyHTTPStatus(statusCode int) ErrorClassification {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Transient
	default:
		return Rejected
	}
}

// MarkTemporary wraps err as domain.ErrTemporary when classify deems it
// retryable or the breaker is open, so callers can tell a flapping dependency
// from a hard failure.
func MarkTemporary(operation string, err error, classify ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || classify(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
