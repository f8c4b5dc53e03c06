// Package stream implements the Stream Translator (C4): converting an
// upstream SSE byte stream into the Anthropic event sequence.
//
// The core is modeled as an explicit state machine (§9) rather than ad-hoc
// chunk pattern matching, so the balance invariants of §8 (every
// content_block_start has a matching content_block_stop, at most one block
// open at a time, index density) fall out of the machine's transitions
// instead of being checked after the fact.
package stream

import "github.com/mkroman/model-router-proxy/internal/anthropic"

// Emitter writes one named Anthropic SSE event. Implementations own framing
// and flushing; the assembler only decides what to send and when.
type Emitter interface {
	Emit(event string, payload any) error
}

type messageStartPayload struct {
	Type    string          `json:"type"`
	Message messageSkeleton `json:"message"`
}

type messageSkeleton struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Role         string          `json:"role"`
	Content      []struct{}      `json:"content"`
	Model        string          `json:"model"`
	StopReason   *string         `json:"stop_reason"`
	StopSequence *string         `json:"stop_sequence"`
	Usage        anthropic.Usage `json:"usage"`
}

type contentBlockStartPayload struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock any    `json:"content_block"`
}

type textBlockPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolBlockPayload struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input any    `json:"input"`
}

type contentBlockDeltaPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta any    `json:"delta"`
}

type textDeltaPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type jsonDeltaPayload struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

type contentBlockStopPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

type messageDeltaPayload struct {
	Type  string            `json:"type"`
	Delta messageDeltaDelta `json:"delta"`
	Usage messageDeltaUsage `json:"usage"`
}

type messageDeltaDelta struct {
	StopReason   anthropic.StopReason `json:"stop_reason"`
	StopSequence *string              `json:"stop_sequence"`
}

type messageDeltaUsage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens int  `json:"output_tokens"`
}

type messageStopPayload struct {
	Type string `json:"type"`
}
