// Package respond implements the Response Translator (C3): rewriting a
// single, complete upstream JSON response back into an Anthropic Message.
package respond

import "github.com/mkroman/model-router-proxy/internal/anthropic"

// MapFinishReason applies the unified finish-reason table of §4.3, shared by
// both non-streaming translators and the Stream Translator's terminal
// event.
func MapFinishReason(upstream string) anthropic.StopReason {
	switch upstream {
	case "stop", "completed", "content_filter":
		return anthropic.StopReasonEndTurn
	case "tool_calls", "function_call", "requires_action":
		return anthropic.StopReasonToolUse
	case "length", "max_output_tokens":
		return anthropic.StopReasonMaxTokens
	case "stop_sequence":
		return anthropic.StopReasonStopSequence
	default:
		return anthropic.StopReasonEndTurn
	}
}
