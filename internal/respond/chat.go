package respond

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
)

// FromChatCompletion rewrites a Chat Completions response into an
// AnthropicResponse (§4.3).
func FromChatCompletion(resp *openai.ChatCompletionResponse, model string) (*anthropic.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion response has no choices")
	}
	choice := resp.Choices[0]

	var content anthropic.ContentBlocks
	if choice.Message.Content != "" {
		content = append(content, anthropic.TextBlock{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		content = append(content, anthropic.ToolUseBlock{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: toolArgsInput(tc.Function.Arguments),
		})
	}

	return &anthropic.Response{
		ID:         withMsgPrefix(resp.ID),
		Type:       "message",
		Role:       anthropic.RoleAssistant,
		Model:      model,
		Content:    ensureContent(content),
		StopReason: MapFinishReason(string(choice.FinishReason)),
		Usage: anthropic.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// ensureContent guarantees the response always carries a content array: an
// upstream reply with neither text nor tool calls still gets a single empty
// text block rather than a nil slice that marshals to null.
func ensureContent(content anthropic.ContentBlocks) anthropic.ContentBlocks {
	if len(content) == 0 {
		return anthropic.ContentBlocks{anthropic.TextBlock{Text: ""}}
	}
	return content
}

// toolArgsInput parses a tool call's JSON-encoded arguments string into the
// Anthropic tool_use input field. On parse failure the raw string is
// wrapped as {"_raw": <string>} rather than dropped (§4.3).
func toolArgsInput(arguments string) json.RawMessage {
	if arguments == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	wrapped, err := json.Marshal(map[string]string{"_raw": arguments})
	if err != nil {
		return json.RawMessage("{}")
	}
	return wrapped
}
