package stream

import (
	"iter"
	"testing"

	"github.com/mkroman/model-router-proxy/internal/openaiwire"
)

func eventsOf(evs ...openaiwire.StreamEvent) iter.Seq2[openaiwire.StreamEvent, error] {
	return func(yield func(openaiwire.StreamEvent, error) bool) {
		for _, e := range evs {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func TestResponsesStreamPlainText(t *testing.T) {
	rec := newRecordingEmitter()
	evs := eventsOf(
		openaiwire.StreamEvent{Type: "response.created", Response: &openaiwire.Response{ID: "resp_1", Status: "in_progress"}},
		openaiwire.StreamEvent{Type: "response.output_item.added", Item: &openaiwire.OutputItem{Type: "message", ID: "item_1"}},
		openaiwire.StreamEvent{Type: "response.output_text.delta", ItemID: "item_1", Delta: "he"},
		openaiwire.StreamEvent{Type: "response.output_text.delta", ItemID: "item_1", Delta: "llo"},
		openaiwire.StreamEvent{Type: "response.output_item.done", Item: &openaiwire.OutputItem{Type: "message", ID: "item_1"}},
		openaiwire.StreamEvent{Type: "response.completed", Response: &openaiwire.Response{
			Status: "completed",
			Usage:  &openaiwire.ResponseUsage{InputTokens: 4, OutputTokens: 2},
		}},
	)

	if err := ResponsesStream(evs, rec, "gpt-5-mini"); err != nil {
		t.Fatalf("ResponsesStream: %v", err)
	}

	want := []string{
		"message_start", "content_block_start", "content_block_delta",
		"content_block_delta", "content_block_stop", "message_delta", "message_stop",
	}
	assertEventSequence(t, rec, want)

	if got := rec.textOf(0); got != "hello" {
		t.Errorf("text = %q, want hello", got)
	}
	delta := rec.payloads[len(rec.payloads)-2].(messageDeltaPayload)
	if delta.Delta.StopReason != "end_turn" {
		t.Errorf("stop_reason = %q, want end_turn", delta.Delta.StopReason)
	}
	if delta.Usage.InputTokens == nil || *delta.Usage.InputTokens != 4 || delta.Usage.OutputTokens != 2 {
		t.Errorf("unexpected usage: %+v", delta.Usage)
	}
}

func TestResponsesStreamFunctionCall(t *testing.T) {
	rec := newRecordingEmitter()
	evs := eventsOf(
		openaiwire.StreamEvent{Type: "response.created", Response: &openaiwire.Response{ID: "resp_1", Status: "in_progress"}},
		openaiwire.StreamEvent{Type: "response.output_item.added", Item: &openaiwire.OutputItem{Type: "function_call", ID: "item_1", CallID: "call_1", Name: "search"}},
		openaiwire.StreamEvent{Type: "response.function_call_arguments.delta", ItemID: "item_1", Delta: `{"q":`},
		openaiwire.StreamEvent{Type: "response.function_call_arguments.delta", ItemID: "item_1", Delta: `"hi"}`},
		openaiwire.StreamEvent{Type: "response.output_item.done", Item: &openaiwire.OutputItem{Type: "function_call", ID: "item_1"}},
		openaiwire.StreamEvent{Type: "response.completed", Response: &openaiwire.Response{
			Status: "completed",
			Output: []openaiwire.OutputItem{{Type: "function_call", CallID: "call_1", Name: "search"}},
		}},
	)

	if err := ResponsesStream(evs, rec, "gpt-5-mini"); err != nil {
		t.Fatalf("ResponsesStream: %v", err)
	}

	start := rec.payloads[1].(contentBlockStartPayload)
	tb := start.ContentBlock.(toolBlockPayload)
	if tb.ID != "call_1" || tb.Name != "search" {
		t.Errorf("unexpected tool block: %+v", tb)
	}
	if got := rec.jsonOf(0); got != `{"q":"hi"}` {
		t.Errorf("json = %q, want {\"q\":\"hi\"}", got)
	}
	delta := rec.payloads[len(rec.payloads)-2].(messageDeltaPayload)
	if delta.Delta.StopReason != "tool_use" {
		t.Errorf("stop_reason = %q, want tool_use", delta.Delta.StopReason)
	}
}

func TestResponsesStreamError(t *testing.T) {
	rec := newRecordingEmitter()
	evs := eventsOf(
		openaiwire.StreamEvent{Type: "response.created", Response: &openaiwire.Response{ID: "resp_1", Status: "in_progress"}},
		openaiwire.StreamEvent{Type: "response.error", Error: &openaiwire.ErrorPayload{Message: "upstream exploded"}},
	)

	if err := ResponsesStream(evs, rec, "gpt-5-mini"); err != nil {
		t.Fatalf("ResponsesStream: %v", err)
	}

	want := []string{"message_start", "error", "message_stop"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i, w := range want {
		if rec.events[i] != w {
			t.Fatalf("events[%d] = %q, want %q", i, rec.events[i], w)
		}
	}
}
