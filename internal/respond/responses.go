package respond

import (
	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/openaiwire"
)

// FromResponses rewrites a Responses API response into an AnthropicResponse
// (§4.3).
func FromResponses(resp *openaiwire.Response, model string) (*anthropic.Response, error) {
	var content anthropic.ContentBlocks
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				if c.Type == "output_text" {
					content = append(content, anthropic.TextBlock{Text: c.Text})
				}
			}
		case "function_call":
			content = append(content, anthropic.ToolUseBlock{
				ID:    item.CallID,
				Name:  item.Name,
				Input: toolArgsInput(item.Arguments),
			})
		case "reasoning":
			// dropped (§4.3).
		}
	}

	var usage anthropic.Usage
	if resp.Usage != nil {
		usage = anthropic.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	}

	return &anthropic.Response{
		ID:         withMsgPrefix(resp.ID),
		Type:       "message",
		Role:       anthropic.RoleAssistant,
		Model:      model,
		Content:    ensureContent(content),
		StopReason: MapFinishReason(finishToken(resp)),
		Usage:      usage,
	}, nil
}

// finishToken derives the token fed into MapFinishReason from a Responses
// result: a function_call output takes priority over the terminal status,
// matching the unified table's function_call→tool_use entry (§4.3).
func finishToken(resp *openaiwire.Response) string {
	for _, item := range resp.Output {
		if item.Type == "function_call" {
			return "function_call"
		}
	}
	if resp.Status == "incomplete" && resp.IncompleteDetails != nil {
		return resp.IncompleteDetails.Reason
	}
	return resp.Status
}
