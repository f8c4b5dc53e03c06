package translate

import (
	"encoding/json"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/openaiwire"
)

// ToResponses rewrites req into an OpenAI Responses API request body
// (§4.2). Unknown content-block types are preserved as text rather than
// rejected.
func ToResponses(req *anthropic.Request) (*openaiwire.Request, error) {
	var input []openaiwire.InputItem
	for _, m := range req.Messages {
		if s, ok := m.StringContent(); ok {
			contentType := "input_text"
			if m.Role == anthropic.RoleAssistant {
				contentType = "output_text"
			}
			input = append(input, openaiwire.InputItem{
				Type:    "message",
				Role:    string(m.Role),
				Content: []openaiwire.InputContent{{Type: contentType, Text: s}},
			})
			continue
		}
		if m.Role == anthropic.RoleAssistant {
			input = append(input, assistantResponsesItems(m.Content)...)
		} else {
			input = append(input, userResponsesItems(m.Content)...)
		}
	}

	body := &openaiwire.Request{
		Model:        req.Model,
		Input:        input,
		Instructions: req.System.Joined(),
		Stream:       req.Stream,
		Store:        false,
	}
	if req.MaxTokens > 0 {
		body.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		body.Temperature = req.Temperature
	}
	if req.TopP != nil {
		body.TopP = req.TopP
	}
	if len(req.Tools) > 0 {
		body.Tools = responsesTools(req.Tools)
	}
	if req.ToolChoice != nil {
		body.ToolChoice = responsesToolChoice(*req.ToolChoice)
	}

	return body, nil
}

// userResponsesItems mirrors userChatMessages: tool_result blocks become
// their own function_call_output items, interleaved in block order with
// text/image content accumulated into "message" items (§4.2).
func userResponsesItems(blocks anthropic.ContentBlocks) []openaiwire.InputItem {
	var content []openaiwire.InputContent
	var items []openaiwire.InputItem

	flush := func() {
		if len(content) == 0 {
			return
		}
		items = append(items, openaiwire.InputItem{
			Type:    "message",
			Role:    "user",
			Content: append([]openaiwire.InputContent(nil), content...),
		})
		content = nil
	}

	for _, blk := range blocks {
		switch v := blk.(type) {
		case anthropic.TextBlock:
			content = append(content, openaiwire.InputContent{Type: "input_text", Text: v.Text})
		case anthropic.ImageBlock:
			content = append(content, openaiwire.InputContent{Type: "input_image", ImageURL: dataURL(v.Source)})
		case anthropic.ToolResultBlock:
			flush()
			output := v.Content.Joined()
			if v.IsError {
				output = "[tool_error] " + output
			}
			items = append(items, openaiwire.InputItem{
				Type:   "function_call_output",
				CallID: v.ToolUseID,
				Output: output,
			})
		case anthropic.ThinkingBlock:
			// dropped (§4.2).
		case anthropic.RawBlock:
			content = append(content, openaiwire.InputContent{Type: "input_text", Text: string(v.JSON)})
		}
	}
	flush()
	return items
}

// assistantResponsesItems mirrors assistantChatMessage: text accumulates
// into "message" items, each tool_use becomes its own function_call item.
// The item id is prefixed "fc_" ahead of the tool-use id, following the
// original's convention (SPEC_FULL §12); call_id stays the bare tool-use id.
func assistantResponsesItems(blocks anthropic.ContentBlocks) []openaiwire.InputItem {
	var content []openaiwire.InputContent
	var items []openaiwire.InputItem

	flush := func() {
		if len(content) == 0 {
			return
		}
		items = append(items, openaiwire.InputItem{
			Type:    "message",
			Role:    "assistant",
			Content: append([]openaiwire.InputContent(nil), content...),
		})
		content = nil
	}

	for _, blk := range blocks {
		switch v := blk.(type) {
		case anthropic.TextBlock:
			content = append(content, openaiwire.InputContent{Type: "output_text", Text: v.Text})
		case anthropic.ToolUseBlock:
			flush()
			args := "{}"
			if len(v.Input) > 0 {
				args = string(v.Input)
			}
			items = append(items, openaiwire.InputItem{
				Type:      "function_call",
				ID:        "fc_" + v.ID,
				CallID:    v.ID,
				Name:      v.Name,
				Arguments: args,
			})
		case anthropic.ThinkingBlock:
			// dropped (§4.2).
		case anthropic.ImageBlock:
			content = append(content, openaiwire.InputContent{Type: "output_text", Text: "[image omitted]"})
		case anthropic.RawBlock:
			content = append(content, openaiwire.InputContent{Type: "output_text", Text: string(v.JSON)})
		}
	}
	flush()
	return items
}

// responsesTools rewrites Anthropic tool definitions to the flattened
// Responses shape (§4.2).
func responsesTools(tools []anthropic.Tool) []openaiwire.Tool {
	out := make([]openaiwire.Tool, 0, len(tools))
	for _, t := range tools {
		schema := t.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, openaiwire.Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
			Strict:      false,
		})
	}
	return out
}

func responsesToolChoice(tc anthropic.ToolChoice) any {
	switch tc.Type {
	case "auto":
		return "auto"
	case "any":
		return "required"
	case "none":
		return "none"
	case "tool":
		return openaiwire.NamedToolChoice{Type: "function", Name: tc.Name}
	default:
		return "auto"
	}
}
