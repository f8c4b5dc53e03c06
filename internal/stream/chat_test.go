package stream

import (
	"iter"
	"testing"
)

func linesOf(ss ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, s := range ss {
			if !yield(s, nil) {
				return
			}
		}
	}
}

func TestChatStreamPlainText(t *testing.T) {
	rec := newRecordingEmitter()
	lines := linesOf(
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"he"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"llo"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		"[DONE]",
	)
	if err := ChatStream(lines, rec, "gpt-4o-mini"); err != nil {
		t.Fatalf("ChatStream: %v", err)
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
}

func TestChatStreamToolCall(t *testing.T) {
	rec := newRecordingEmitter()
	lines := linesOf(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"search","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"q\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"hi\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		"[DONE]",
	)
	if err := ChatStream(lines, rec, "gpt-4o-mini"); err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	want := []string{
		"message_start", "content_block_start", "content_block_delta",
		"content_block_delta", "content_block_stop", "message_delta", "message_stop",
	}
	assertEventSequence(t, rec, want)

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

func TestChatStreamSkipsMalformedLine(t *testing.T) {
	rec := newRecordingEmitter()
	lines := linesOf(
		`not json at all`,
		`{"choices":[{"index":0,"delta":{"content":"hi"},"finish_reason":"stop"}]}`,
		"[DONE]",
	)
	if err := ChatStream(lines, rec, "gpt-4o-mini"); err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if got := rec.textOf(0); got != "hi" {
		t.Errorf("text = %q, want hi", got)
	}
}

func assertEventSequence(t *testing.T, rec *recordingEmitter, want []string) {
	t.Helper()
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i, w := range want {
		if rec.events[i] != w {
			t.Fatalf("events[%d] = %q, want %q (full: %v)", i, rec.events[i], w, rec.events)
		}
	}
	if !rec.sawStart || !rec.sawStop {
		t.Fatalf("missing message_start/message_stop: %v", rec.events)
	}
	if len(rec.openBlocks) != 0 {
		t.Fatalf("unclosed blocks remain: %v", rec.openBlocks)
	}
}
