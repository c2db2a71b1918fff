package openai

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

func statusCode(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

func classifyAPIError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	if code := statusCode(err); code != 0 {
		return resilience.ClassifyHTTPStatus(code)
	}
	if class, ok := resilience.ClassifyNetwork(err); ok {
		return class
	}
	return resilience.Permanent
}

// parseAPIError extracts a readable message from the provider response and
// marks retryable failures as temporary.
func parseAPIError(operation string, err error) error {
	var out error
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &apiErr):
		out = fmt.Errorf("openai %s error %d: %s: %w", operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	case errors.As(err, &reqErr):
		if detail := extractDetail(reqErr.Body); detail != "" {
			out = fmt.Errorf("openai %s error %d: %s: %w", operation, reqErr.HTTPStatusCode, detail, err)
		} else {
			out = fmt.Errorf("openai %s error %d: %w", operation, reqErr.HTTPStatusCode, err)
		}
	default:
		out = fmt.Errorf("openai %s: %w", operation, err)
	}

	if resilience.IsCircuitOpen(err) || classifyAPIError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, out)
	}
	return out
}

// extractDetail reads the "detail" field some compatible servers return instead
// of the OpenAI error envelope.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
