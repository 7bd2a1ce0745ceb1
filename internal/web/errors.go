package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/RepRech/internal/core"
	"github.com/JonMunkholm/RepRech/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// respondError logs the technical error with the request ID and writes
// the mapped user message. Server failures and errors without a mapped
// message log at error level, the rest at warn.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError || !core.IsUserFacing(err) {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	writeJSON(w, r, status, ErrorResponse{
		Error:  msg.Message,
		Action: msg.Action,
		Code:   msg.Code,
	})
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrNoFiles):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
