package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

// Retry-After hints, in seconds
const (
	conflictRetryAfter    = 1
	unavailableRetryAfter = 5
)

// writeError maps service layer errors onto HTTP responses.
// resource names the entity in not found and already exists messages.
func writeError(w http.ResponseWriter, log *logger.Logger, resource string, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, domain.ErrHasChildren):
		response.Error(w, http.StatusConflict, "Category has subcategories")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, resource+" already exists")
	case errors.Is(err, domain.ErrConflict):
		response.ErrorRetryAfter(w, http.StatusConflict, "Conflict - modified by a concurrent request, retry", conflictRetryAfter)
	case errors.Is(err, domain.ErrUnavailable):
		log.Error("Backend unavailable", err)
		response.ErrorRetryAfter(w, http.StatusServiceUnavailable, "Service temporarily unavailable", unavailableRetryAfter)
	default:
		log.Error("Internal error in "+resource+" handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
