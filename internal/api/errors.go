package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/dashboard"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/notify"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal_error"
	ErrCodeUnavailable    = "service_unavailable"
	ErrCodeDeliveryFailed = "delivery_failed"
	ErrCodeTimeout        = "timeout"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// isRequestError reports whether err was caused by the caller's parameters.
func isRequestError(err error) bool {
	return errors.Is(err, telemetry.ErrInvalidRange) ||
		errors.Is(err, telemetry.ErrRangeTooLarge) ||
		errors.Is(err, dashboard.ErrInvalidDate) ||
		errors.Is(err, dashboard.ErrNoChannels) ||
		errors.Is(err, channel.ErrUnknownChannel) ||
		errors.Is(err, channel.ErrUnknownCategory)
}

// writeDomainError maps errors from the dashboard and notifier to responses.
// Unexpected errors are logged and reported as 500 without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isRequestError(err):
		writeBadRequest(w, err.Error())
	case errors.Is(err, telemetry.ErrNotFound), errors.Is(err, dashboard.ErrNoDateBounds):
		writeNotFound(w, err.Error())
	case errors.Is(err, notify.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, notify.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, ErrCodeDeliveryFailed, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out")
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}
