package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeAnthropicError writes an Anthropic error envelope with the HTTP
// status derived from its kind (§6).
func writeAnthropicError(ctx context.Context, w http.ResponseWriter, kind anthropic.ErrorKind, message string) {
	writeJSON(ctx, w, anthropic.NewError(kind, message), statusForKind(kind))
}

func statusForKind(kind anthropic.ErrorKind) int {
	switch kind {
	case anthropic.ErrInvalidRequest:
		return http.StatusBadRequest
	case anthropic.ErrAuthentication:
		return http.StatusUnauthorized
	case anthropic.ErrPermission:
		return http.StatusForbidden
	case anthropic.ErrNotFound:
		return http.StatusNotFound
	case anthropic.ErrRateLimit:
		return http.StatusTooManyRequests
	case anthropic.ErrOverloaded:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
