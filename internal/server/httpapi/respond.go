package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/megavault/internal/common"
)

// Fixed client-facing messages for server-side failures. Upstream error text
// only goes to the log.
const (
	msgUpstream         = "storage backend request failed"
	msgPartiallyApplied = "object metadata was updated but the visibility record was not; retry the request"
	msgInternal         = "internal server error"
)

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps an error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "session expired"
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "access to this key is not allowed"
	case errors.Is(err, common.ErrNoSuchUpload):
		return http.StatusNotFound, "upload not found"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrPartiallyApplied):
		return http.StatusInternalServerError, msgPartiallyApplied
	case errors.Is(err, common.ErrUpstream):
		return http.StatusInternalServerError, msgUpstream
	}
	return http.StatusInternalServerError, msgInternal
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(ctx, "request failed", "requestId", requestIDFrom(ctx), "error", err)
	}
	writeError(w, status, msg)
}
