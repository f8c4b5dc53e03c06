// Package dispatch implements the Request Dispatcher (C6): it wires the
// Model Router, Request/Response/Stream Translators, and Upstream Client
// together for a single client request, including the one-shot
// chat/responses fallback retry (§4.6).
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/openaiwire"
	"github.com/mkroman/model-router-proxy/internal/respond"
	"github.com/mkroman/model-router-proxy/internal/router"
	"github.com/mkroman/model-router-proxy/internal/stream"
	"github.com/mkroman/model-router-proxy/internal/translate"
	"github.com/mkroman/model-router-proxy/internal/upstream"
)

// Dispatcher orchestrates one Anthropic request end to end.
type Dispatcher struct {
	Router               router.Router
	Upstream             *upstream.Client
	DefaultModelOverride string
}

// New builds a Dispatcher. defaultModelOverride, when non-empty, is
// substituted for the caller's requested model before routing (§6).
func New(r router.Router, u *upstream.Client, defaultModelOverride string) *Dispatcher {
	return &Dispatcher{Router: r, Upstream: u, DefaultModelOverride: defaultModelOverride}
}

// resolveModel applies DefaultModelOverride to req, returning a shallow copy
// with Model swapped when an override is configured, so the caller's
// original request is left untouched.
func (d *Dispatcher) resolveModel(req *anthropic.Request) *anthropic.Request {
	if d.DefaultModelOverride == "" || req.Model == d.DefaultModelOverride {
		return req
	}
	overridden := *req
	overridden.Model = d.DefaultModelOverride
	return &overridden
}

// chatWrongFlavorHints and responsesWrongFlavorHints are the case-insensitive
// substrings recognized on an upstream 4xx error body as "you called the
// wrong API flavor for this model" (§4.6); any one of them matching is enough.
var chatWrongFlavorHints = []string{
	"not a chat model",
	"v1/chat/completions",
	"must use the responses api",
}

var responsesWrongFlavorHints = []string{
	"not supported in v1/responses",
	"must use the chat completions api",
}

func isWrongFlavorHint(body []byte, hints []string) bool {
	lower := strings.ToLower(string(body))
	for _, h := range hints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func hintsFor(flavor router.Flavor) []string {
	if flavor == router.Chat {
		return chatWrongFlavorHints
	}
	return responsesWrongFlavorHints
}

// upstreamPath returns the Upstream Client path for a flavor.
func upstreamPath(flavor router.Flavor) string {
	if flavor == router.Chat {
		return "chat/completions"
	}
	return "responses"
}

// buildBody translates the Anthropic request into the wire body for flavor.
func buildBody(req *anthropic.Request, flavor router.Flavor) ([]byte, error) {
	if flavor == router.Chat {
		chatReq, err := translate.ToChatCompletions(req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(chatReq)
	}
	respReq, err := translate.ToResponses(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(respReq)
}

// UpstreamError is a transport or non-2xx upstream failure that has not yet
// been translated into the Anthropic error envelope; the HTTP front end
// maps it to a status code and kind.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }

// transportError wraps a plain transport failure (no HTTP status available).
func transportError(err error) *UpstreamError {
	return &UpstreamError{Status: 0, Message: err.Error()}
}

// NonStream executes req and returns the translated AnthropicResponse.
func (d *Dispatcher) NonStream(ctx context.Context, req *anthropic.Request, bearerToken string) (*anthropic.Response, error) {
	req = d.resolveModel(req)
	flavor := d.Router.Resolve(req.Model)

	resp, usedFlavor, err := d.callWithFallback(ctx, req, bearerToken, flavor, false)
	if err != nil {
		return nil, err
	}

	if resp.Status >= 300 {
		return nil, &UpstreamError{Status: resp.Status, Message: string(resp.Body)}
	}

	if usedFlavor == router.Chat {
		var chatResp openai.ChatCompletionResponse
		if err := json.Unmarshal(resp.Body, &chatResp); err != nil {
			return nil, fmt.Errorf("decoding upstream chat completion: %w", err)
		}
		return respond.FromChatCompletion(&chatResp, req.Model)
	}

	var wireResp openaiwire.Response
	if err := json.Unmarshal(resp.Body, &wireResp); err != nil {
		return nil, fmt.Errorf("decoding upstream responses reply: %w", err)
	}
	return respond.FromResponses(&wireResp, req.Model)
}

// Stream executes req and drives emit through the full Anthropic SSE event
// sequence (§4.4). Once any event has been emitted, no fallback retry is
// possible; upstream failures surface as an "error" event + message_stop.
func (d *Dispatcher) Stream(ctx context.Context, req *anthropic.Request, bearerToken string, emit stream.Emitter) error {
	req = d.resolveModel(req)
	flavor := d.Router.Resolve(req.Model)

	result, usedFlavor, err := d.callWithFallback(ctx, req, bearerToken, flavor, true)
	if err != nil {
		return emitUpstreamError(emit, err)
	}

	if result.Status >= 300 {
		return emitUpstreamError(emit, &UpstreamError{Status: result.Status, Message: string(result.Body)})
	}

	if usedFlavor == router.Chat {
		return stream.ChatStream(result.Lines, emit, req.Model)
	}
	return stream.ResponsesStream(decodeResponsesEvents(result.Lines), emit, req.Model)
}

// decodeResponsesEvents adapts the raw SSE payload-line sequence into typed
// Responses stream events, skipping lines that fail to decode.
func decodeResponsesEvents(lines iter.Seq2[string, error]) iter.Seq2[openaiwire.StreamEvent, error] {
	return func(yield func(openaiwire.StreamEvent, error) bool) {
		for line, err := range lines {
			if err != nil {
				yield(openaiwire.StreamEvent{}, err)
				return
			}
			var ev openaiwire.StreamEvent
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// callWithFallback issues the upstream call for flavor and, if it fails
// with a wrong-flavor hint before any bytes have gone to the client,
// retries once with the opposite flavor (§4.6). It always returns the
// flavor actually used for the returned result.
func (d *Dispatcher) callWithFallback(ctx context.Context, req *anthropic.Request, bearerToken string, flavor router.Flavor, streamed bool) (*upstream.Result, router.Flavor, error) {
	body, err := buildBody(req, flavor)
	if err != nil {
		return nil, flavor, err
	}

	result, err := d.Upstream.Post(ctx, upstreamPath(flavor), bearerToken, body, streamed)
	if err != nil {
		return nil, flavor, transportError(err)
	}

	if result.Status < 400 || result.Status >= 500 {
		return result, flavor, nil
	}
	if !isWrongFlavorHint(result.Body, hintsFor(flavor)) {
		return result, flavor, nil
	}

	fallback := router.Opposite(flavor)
	fallbackBody, err := buildBody(req, fallback)
	if err != nil {
		return nil, flavor, err
	}
	fallbackResult, err := d.Upstream.Post(ctx, upstreamPath(fallback), bearerToken, fallbackBody, streamed)
	if err != nil {
		return nil, flavor, transportError(err)
	}
	return fallbackResult, fallback, nil
}

func emitUpstreamError(emit stream.Emitter, err error) error {
	kind := anthropic.ErrAPI
	message := "upstream request failed"
	if uerr, ok := err.(*UpstreamError); ok {
		kind = KindForStatus(uerr.Status, uerr.Message)
		message = uerr.Message
	}
	envelope := anthropic.NewError(kind, message)
	if emitErr := emit.Emit("error", envelope); emitErr != nil {
		return emitErr
	}
	return emit.Emit("message_stop", struct {
		Type string `json:"type"`
	}{"message_stop"})
}

// KindForStatus applies the HTTP-status-to-error-kind mapping of §6: a 5xx
// whose message mentions "overloaded" maps to overloaded_error instead of
// the default api_error.
func KindForStatus(status int, message string) anthropic.ErrorKind {
	switch status {
	case 400:
		return anthropic.ErrInvalidRequest
	case 401:
		return anthropic.ErrAuthentication
	case 403:
		return anthropic.ErrPermission
	case 404:
		return anthropic.ErrNotFound
	case 429:
		return anthropic.ErrRateLimit
	}
	if status >= 500 && strings.Contains(strings.ToLower(message), "overloaded") {
		return anthropic.ErrOverloaded
	}
	return anthropic.ErrAPI
}
