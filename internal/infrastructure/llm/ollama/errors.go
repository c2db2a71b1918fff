package ollama

import (
	"errors"
	"fmt"

	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the Ollama API.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama %s: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s: %s: %s", e.Operation, e.Status, e.Body)
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ClassifyHTTPStatus(statusErr.StatusCode)
	}
	if class, ok := resilience.ClassifyNetwork(err); ok {
		return class
	}
	return resilience.Permanent
}
