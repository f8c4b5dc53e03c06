// Package translate implements the Request Translator (C2): rewriting an
// Anthropic request body into either a Chat Completions or a Responses
// upstream body.
package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
)

// ToChatCompletions rewrites req into an OpenAI Chat Completions request
// body (§4.2). Unknown content-block types are preserved as text rather than
// rejected.
func ToChatCompletions(req *anthropic.Request) (*openai.ChatCompletionRequest, error) {
	var messages []openai.ChatCompletionMessage

	if sys := req.System.Joined(); sys != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}

	for _, m := range req.Messages {
		if s, ok := m.StringContent(); ok {
			role := openai.ChatMessageRoleUser
			if m.Role == anthropic.RoleAssistant {
				role = openai.ChatMessageRoleAssistant
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: s})
			continue
		}
		if m.Role == anthropic.RoleAssistant {
			messages = append(messages, assistantChatMessage(m.Content))
		} else {
			messages = append(messages, userChatMessages(m.Content)...)
		}
	}

	body := &openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Stream:    req.Stream,
	}
	if req.Temperature != nil {
		body.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		body.TopP = float32(*req.TopP)
	}
	// top_k has no Chat Completions equivalent and is dropped (§4.2).
	if len(req.StopSequences) > 0 {
		body.Stop = req.StopSequences
	}

	if len(req.Tools) > 0 {
		body.Tools = chatTools(req.Tools)
	}
	if req.ToolChoice != nil {
		body.ToolChoice = chatToolChoice(*req.ToolChoice)
	}

	return body, nil
}

// userChatMessages splits a user message's content blocks into chat
// messages: tool_result blocks become their own "tool"-role messages,
// interleaved in block order with the remaining text/image content, which is
// accumulated into a single "user"-role message per contiguous run (§4.2).
func userChatMessages(blocks anthropic.ContentBlocks) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	var pending []openai.ChatMessagePart

	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: append([]openai.ChatMessagePart(nil), pending...),
		})
		pending = nil
	}

	for _, blk := range blocks {
		switch v := blk.(type) {
		case anthropic.TextBlock:
			pending = append(pending, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: v.Text,
			})
		case anthropic.ImageBlock:
			pending = append(pending, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: dataURL(v.Source),
				},
			})
		case anthropic.ToolResultBlock:
			flush()
			content := v.Content.Joined()
			if v.IsError {
				content = "[tool_error] " + content
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: v.ToolUseID,
			})
		case anthropic.ThinkingBlock:
			// thinking never crosses to the upstream (§4.2).
		case anthropic.RawBlock:
			pending = append(pending, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: string(v.JSON),
			})
		}
	}
	flush()
	return out
}

// assistantChatMessage concatenates an assistant message's text blocks into
// a single content string and collects its tool_use blocks into tool_calls
// (§4.2). thinking blocks are dropped.
func assistantChatMessage(blocks anthropic.ContentBlocks) openai.ChatCompletionMessage {
	var text strings.Builder
	var toolCalls []openai.ToolCall

	for _, blk := range blocks {
		switch v := blk.(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			args := "{}"
			if len(v.Input) > 0 {
				args = string(v.Input)
			}
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   v.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      v.Name,
					Arguments: args,
				},
			})
		case anthropic.ThinkingBlock:
			// dropped (§4.2).
		case anthropic.RawBlock:
			text.WriteString(string(v.JSON))
		}
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	if text.Len() > 0 {
		msg.Content = text.String()
	}
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}
	return msg
}

func dataURL(src anthropic.ImageSource) string {
	return fmt.Sprintf("data:%s;base64,%s", src.MediaType, src.Data)
}

// chatTools rewrites Anthropic tool definitions to Chat Completions'
// {type:"function", function:{...}} shape (§4.2).
func chatTools(tools []anthropic.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var params any
		if len(t.InputSchema) > 0 {
			_ = json.Unmarshal(t.InputSchema, &params)
		} else {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// chatToolChoice maps Anthropic's tool_choice union onto Chat Completions'
// (§4.2): "auto"→"auto", "any"→"required", {type:tool,name}→named function
// choice, "none"→"none".
func chatToolChoice(tc anthropic.ToolChoice) any {
	switch tc.Type {
	case "auto":
		return "auto"
	case "any":
		return "required"
	case "none":
		return "none"
	case "tool":
		return openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: tc.Name},
		}
	default:
		return "auto"
	}
}
