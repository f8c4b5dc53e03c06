package translate

import (
	"encoding/json"
	"testing"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
)

func TestToResponsesPlainText(t *testing.T) {
	req := &anthropic.Request{
		Model:     "gpt-5-mini",
		MaxTokens: 32,
		Messages: []anthropic.Message{
			decodeMessage(t, `{"role":"user","content":"hi"}`),
		},
	}
	body, err := ToResponses(req)
	if err != nil {
		t.Fatalf("ToResponses: %v", err)
	}
	if body.Store {
		t.Error("Store must always be false")
	}
	if body.MaxOutputTokens != 32 {
		t.Errorf("MaxOutputTokens = %d, want 32", body.MaxOutputTokens)
	}
	if len(body.Input) != 1 || body.Input[0].Type != "message" || body.Input[0].Content[0].Type != "input_text" {
		t.Fatalf("unexpected input: %+v", body.Input)
	}
}

func TestToResponsesToolUseAndResult(t *testing.T) {
	req := &anthropic.Request{
		Model: "gpt-5-mini",
		Messages: []anthropic.Message{
			decodeMessage(t, `{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"f","input":{"x":1}}]}`),
			decodeMessage(t, `{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"42"}]}`),
		},
	}
	body, err := ToResponses(req)
	if err != nil {
		t.Fatalf("ToResponses: %v", err)
	}
	if len(body.Input) != 2 {
		t.Fatalf("expected 2 input items, got %d: %+v", len(body.Input), body.Input)
	}
	fc := body.Input[0]
	if fc.Type != "function_call" || fc.CallID != "t1" || fc.ID != "fc_t1" || fc.Name != "f" || fc.Arguments != `{"x":1}` {
		t.Errorf("unexpected function_call item: %+v", fc)
	}
	out := body.Input[1]
	if out.Type != "function_call_output" || out.CallID != "t1" || out.Output != "42" {
		t.Errorf("unexpected function_call_output item: %+v", out)
	}
}

func TestToResponsesSystemInstructions(t *testing.T) {
	var sys anthropic.SystemPrompt
	if err := json.Unmarshal([]byte(`"be nice"`), &sys); err != nil {
		t.Fatalf("unmarshal system: %v", err)
	}
	req := &anthropic.Request{
		Model:  "gpt-5-mini",
		System: &sys,
		Messages: []anthropic.Message{
			decodeMessage(t, `{"role":"user","content":"hi"}`),
		},
	}
	body, err := ToResponses(req)
	if err != nil {
		t.Fatalf("ToResponses: %v", err)
	}
	if body.Instructions != "be nice" {
		t.Errorf("Instructions = %q, want %q", body.Instructions, "be nice")
	}
}
