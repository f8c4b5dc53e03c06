// Package router implements the Model Router (C1): a pure classifier that
// decides whether a model id should be dispatched against Chat Completions
// or the Responses API.
package router

import "strings"

// Flavor is the upstream API shape a request gets translated into.
type Flavor string

const (
	Chat      Flavor = "chat"
	Responses Flavor = "responses"
)

// responsesPrefixes are the model id prefixes that route to Responses by
// default (§4.1).
var responsesPrefixes = []string{"gpt-5", "o1", "o3", "o4"}

// Classify applies the deterministic, side-effect-free rules of §4.1: the
// first matching rule wins.
//
//  1. If modelID matches one of the responses prefixes, or contains "codex",
//     it classifies as Responses.
//  2. Otherwise it classifies as Chat.
func Classify(modelID string) Flavor {
	lower := strings.ToLower(modelID)
	for _, prefix := range responsesPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return Responses
		}
	}
	if strings.Contains(lower, "codex") {
		return Responses
	}
	return Chat
}

// Router resolves the flavor for a request, applying per-request overrides
// over the base classification, then a force-responses knob carried from the
// external configuration.
//
// Overrides is a configured map from Anthropic model id to an explicit
// flavor; it lets an operator correct misclassification without a code
// change, the same escape hatch the original exposes via its per-model
// override table. ForceResponses mirrors the original's
// MODEL_ROUTER_FORCE_RESPONSES environment knob (SPEC_FULL §12): when set,
// every model is routed to Responses regardless of id or override.
type Router struct {
	Overrides      map[string]Flavor
	ForceResponses bool
}

// Resolve picks the flavor to try first for modelID.
func (r Router) Resolve(modelID string) Flavor {
	if r.ForceResponses {
		return Responses
	}
	if flavor, ok := r.Overrides[modelID]; ok {
		return flavor
	}
	return Classify(modelID)
}

// Opposite returns the other flavor, used by the dispatcher's one-shot
// fallback retry (§4.6).
func Opposite(f Flavor) Flavor {
	if f == Chat {
		return Responses
	}
	return Chat
}
