package httpadapter

import (
	"net/http"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage hides internal detail for server-side failures.
func publicErrorMessage(status int, err error) string {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized:
		return err.Error()
	case http.StatusBadGateway:
		return "upstream model provider unavailable"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal error"
	}
}
