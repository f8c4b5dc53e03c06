package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/dispatch"
)

// handleMessages implements POST /v1/messages (§4.7): it decodes and
// validates the request body, extracts the caller's bearer token, and
// dispatches it, writing back either a buffered JSON response or an
// Anthropic SSE stream.
func (p *Proxy) handleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req anthropic.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeAnthropicError(ctx, w, anthropic.ErrInvalidRequest, http.StatusText(http.StatusRequestEntityTooLarge))
			return
		}
		slog.WarnContext(ctx, "failed to decode request", "error", err)
		writeAnthropicError(ctx, w, anthropic.ErrInvalidRequest, "request body is not valid JSON")
		return
	}

	if err := p.validate.Struct(&req); err != nil {
		slog.WarnContext(ctx, "request failed validation", "error", err)
		writeAnthropicError(ctx, w, anthropic.ErrInvalidRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		slog.WarnContext(ctx, "request failed semantic validation", "error", err)
		writeAnthropicError(ctx, w, anthropic.ErrInvalidRequest, err.Error())
		return
	}

	token, ok := bearerToken(r)
	if !ok {
		writeAnthropicError(ctx, w, anthropic.ErrAuthentication, "missing Authorization or x-api-key header")
		return
	}

	if req.Stream {
		p.streamMessage(ctx, w, &req, token)
		return
	}
	p.writeMessage(ctx, w, &req, token)
}

// bearerToken extracts the caller's credential from Authorization (stripping
// a "Bearer " prefix if present) or x-api-key, per §4.7.
func bearerToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer "), true
	}
	if key := r.Header.Get("x-api-key"); key != "" {
		return key, true
	}
	return "", false
}

// writeMessage handles the non-streaming path.
func (p *Proxy) writeMessage(ctx context.Context, w http.ResponseWriter, req *anthropic.Request, token string) {
	if ctx.Err() != nil {
		return
	}

	resp, err := p.dispatcher.NonStream(ctx, req, token)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)

		var uerr *dispatch.UpstreamError
		if errors.As(err, &uerr) {
			kind := dispatch.KindForStatus(uerr.Status, uerr.Message)
			writeAnthropicError(ctx, w, kind, uerr.Message)
			return
		}

		writeAnthropicError(ctx, w, anthropic.ErrAPI, "internal error")
		return
	}

	writeJSON(ctx, w, resp, http.StatusOK)
}

// streamMessage handles the streaming path, framing every emitted event as
// SSE (§4.4, §6).
func (p *Proxy) streamMessage(ctx context.Context, w http.ResponseWriter, req *anthropic.Request, token string) {
	if ctx.Err() != nil {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeAnthropicError(ctx, w, anthropic.ErrAPI, "streaming is not supported by this connection")
		return
	}

	if err := p.dispatcher.Stream(ctx, req, token, sse); err != nil {
		// Once Stream has started writing events, the HTTP status and
		// headers are already committed; the dispatcher's own error +
		// message_stop events are the only signal the client gets.
		slog.ErrorContext(ctx, "stream ended with error", "error", err)
	}
}
