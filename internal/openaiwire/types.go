// Package openaiwire models the OpenAI Responses API wire shapes this proxy
// speaks to reach gpt-5/o*/codex upstreams.
//
// github.com/sashabaranov/go-openai, the dependency this proxy otherwise
// uses for Chat Completions, does not model this surface, so these types are
// hand-maintained, mirroring the approach the Anthropic package takes for
// the receiving side of this proxy.
package openaiwire

import "encoding/json"

// Request is the body of POST /v1/responses.
type Request struct {
	Model           string      `json:"model"`
	Input           []InputItem `json:"input"`
	Instructions    string      `json:"instructions,omitempty"`
	MaxOutputTokens int         `json:"max_output_tokens,omitempty"`
	Temperature     *float64    `json:"temperature,omitempty"`
	TopP            *float64    `json:"top_p,omitempty"`
	Tools           []Tool      `json:"tools,omitempty"`
	ToolChoice      any         `json:"tool_choice,omitempty"`
	Stream          bool        `json:"stream,omitempty"`
	Store           bool        `json:"store"`
}

// InputItem is one element of Request.Input: a message, a synthesized
// function_call (assistant tool use replayed back), or a function_call_output
// (the corresponding tool result).
type InputItem struct {
	Type      string         `json:"type"`
	Role      string         `json:"role,omitempty"`
	Content   []InputContent `json:"content,omitempty"`
	ID        string         `json:"id,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments string         `json:"arguments,omitempty"`
	Output    string         `json:"output,omitempty"`
}

// InputContent is one element of a message input item's content array:
// input_text, input_image (user turns) or output_text (assistant turns).
type InputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Tool is the flattened Responses tool shape (§4.2), distinct from Chat
// Completions' nested {type,function:{...}}.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      bool            `json:"strict"`
}

// NamedToolChoice is the {"type":"function","name":...} tool_choice shape.
type NamedToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Response is the non-streaming reply from POST /v1/responses.
type Response struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	Output            []OutputItem       `json:"output"`
	Usage             *ResponseUsage     `json:"usage,omitempty"`
}

// IncompleteDetails explains a "incomplete" status, e.g. reason
// "max_output_tokens".
type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// ResponseUsage carries Responses' token accounting.
type ResponseUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// OutputItem is one element of Response.Output: a message, a function_call,
// or a reasoning item (dropped by the response translator, §4.3).
type OutputItem struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Content   []OutputContent `json:"content,omitempty"`
}

// OutputContent is one element of a message output item's content array.
type OutputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// StreamEvent is the union of typed Responses streaming events this proxy
// understands (response.created, response.output_item.added/done,
// response.output_text.delta, response.function_call_arguments.delta,
// response.completed, response.error). Fields not relevant to Type are left
// zero.
type StreamEvent struct {
	Type     string        `json:"type"`
	Response *Response     `json:"response,omitempty"`
	Item     *OutputItem   `json:"item,omitempty"`
	Delta    string        `json:"delta,omitempty"`
	ItemID   string        `json:"item_id,omitempty"`
	Error    *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload is the body of a response.error stream event.
type ErrorPayload struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
