package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
)

type ErrorHTTPResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps storage and driver text out of responses. Validation
// messages are built by the core and are safe to echo.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return "invalid credentials"
	case errors.Is(err, domain.ErrNotFound):
		return "uniform unit not found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient stock"
	case errors.Is(err, domain.ErrTransactionFailure):
		return "the operation could not be completed, nothing was changed"
	default:
		return "internal error"
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, ErrorHTTPResponse{Error: domain.Kind(err), Message: publicMessage(err)})
}

// resolveActor takes the actor from the verified token. A body actor id is
// accepted only when it names the same user.
func resolveActor(claims domain.Claims, bodyActorID int64) (int64, error) {
	if claims.ActorID <= 0 {
		return 0, domain.ErrUnauthorized
	}
	if bodyActorID != 0 && bodyActorID != claims.ActorID {
		return 0, fmt.Errorf("actor_id %d does not match the signed-in user: %w", bodyActorID, domain.ErrValidation)
	}
	return claims.ActorID, nil
}
