// Package anthropic models the wire shapes of the Anthropic Messages API that
// this proxy accepts on POST /v1/messages and the shapes it writes back.
//
// No published Go SDK models these types from the receiving side: the
// official anthropic-sdk-go models outbound calls to Anthropic's API, a
// direction this proxy never makes (it only ever calls out to
// OpenAI-compatible upstreams). The types here are hand-maintained instead.
package anthropic

import (
	"encoding/json"
	"fmt"
)

// Request is the body of POST /v1/messages.
type Request struct {
	Model         string          `json:"model" validate:"required"`
	Messages      []Message       `json:"messages" validate:"required,min=1"`
	System        *SystemPrompt   `json:"system,omitempty"`
	MaxTokens     int             `json:"max_tokens,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Tools         []Tool          `json:"tools,omitempty"`
	ToolChoice    *ToolChoice     `json:"tool_choice,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// Validate reports the structural invariants required before translation
// begins (§3: "messages has at least one entry").
func (r *Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must contain at least one entry")
	}
	for i, m := range r.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("messages[%d].role must be \"user\" or \"assistant\", got %q", i, m.Role)
		}
		for j, b := range m.Content {
			if tr, ok := b.(ToolResultBlock); ok && tr.ToolUseID == "" {
				return fmt.Errorf("messages[%d].content[%d] tool_result is missing tool_use_id", i, j)
			}
		}
	}
	return nil
}

// SystemPrompt is either a bare string or a sequence of text blocks; both
// forms are joined with a blank line by the request translator.
type SystemPrompt struct {
	Text   string
	Blocks []TextBlock
}

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Text = str
		return nil
	}
	var blocks []TextBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("system must be a string or a list of text blocks: %w", err)
	}
	s.Blocks = blocks
	return nil
}

func (s *SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks != nil {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

// Joined collapses a SystemPrompt down to the single string the request
// translator forwards upstream (§4.2: text blocks joined with a blank line).
func (s *SystemPrompt) Joined() string {
	if s == nil {
		return ""
	}
	if s.Blocks == nil {
		return s.Text
	}
	joined := ""
	for i, b := range s.Blocks {
		if i > 0 {
			joined += "\n\n"
		}
		joined += b.Text
	}
	return joined
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation. Content is either a bare string
// (a single implicit text block) or an ordered list of ContentBlock variants.
type Message struct {
	Role    Role
	Content ContentBlocks
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	if len(raw.Content) == 0 {
		return nil
	}
	blocks, err := unmarshalContent(raw.Content)
	if err != nil {
		return err
	}
	m.Content = blocks
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	if s, ok := m.StringContent(); ok {
		return json.Marshal(struct {
			Role    Role   `json:"role"`
			Content string `json:"content"`
		}{m.Role, s})
	}
	return json.Marshal(struct {
		Role    Role          `json:"role"`
		Content ContentBlocks `json:"content"`
	}{m.Role, m.Content})
}

// StringContent reports whether the message content was sent as a bare
// string rather than a block list, and returns it if so.
func (m Message) StringContent() (string, bool) {
	if len(m.Content) == 1 {
		if t, ok := m.Content[0].(rawStringBlock); ok {
			return t.text, true
		}
	}
	return "", false
}

// ContentBlocks is an ordered list of tagged content block variants.
type ContentBlocks []ContentBlock

func unmarshalContent(data []byte) (ContentBlocks, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return ContentBlocks{rawStringBlock{text: str}}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("content must be a string or a list of content blocks: %w", err)
	}

	blocks := make(ContentBlocks, 0, len(raws))
	for i, raw := range raws {
		block, err := unmarshalBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("content[%d]: %w", i, err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func unmarshalBlock(raw json.RawMessage) (ContentBlock, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "text":
		var b TextBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case "image":
		var b ImageBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case "tool_use":
		var b ToolUseBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case "tool_result":
		var b ToolResultBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case "thinking":
		var b ThinkingBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		// Unknown variants round-trip via a raw fallback instead of being
		// silently dropped (§9).
		return RawBlock{Type: tag.Type, JSON: append(json.RawMessage(nil), raw...)}, nil
	}
}

// ContentBlock is the sum type for Anthropic's tagged content blocks.
type ContentBlock interface {
	blockType() string
}

// TextBlock is {type:"text", text}.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) blockType() string { return "text" }

func (b TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{"text", b.Text})
}

// ImageSource is the base64 image payload carried by an ImageBlock.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ImageBlock is {type:"image", source:{type:"base64", media_type, data}}.
type ImageBlock struct {
	Source ImageSource `json:"source"`
}

func (ImageBlock) blockType() string { return "image" }

func (b ImageBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string      `json:"type"`
		Source ImageSource `json:"source"`
	}{"image", b.Source})
}

// ToolUseBlock is {type:"tool_use", id, name, input}.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func (ToolUseBlock) blockType() string { return "tool_use" }

func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	input := b.Input
	if input == nil {
		input = json.RawMessage("{}")
	}
	return json.Marshal(struct {
		Type  string          `json:"type"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}{"tool_use", b.ID, b.Name, input})
}

// ToolResultContent is either a bare string or a list of text blocks.
type ToolResultContent struct {
	Text   string
	Blocks []TextBlock
	Raw    json.RawMessage // set when the payload is neither, e.g. a JSON object
}

func (c *ToolResultContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		c.Text = str
		return nil
	}
	var blocks []TextBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		c.Blocks = blocks
		return nil
	}
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (c ToolResultContent) MarshalJSON() ([]byte, error) {
	if c.Raw != nil {
		return c.Raw, nil
	}
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// Joined renders the tool result payload as the plain text the request
// translator forwards, matching the original's convention of joining text
// blocks and falling back to JSON-serializing non-text payloads.
func (c ToolResultContent) Joined() string {
	if c.Blocks != nil {
		joined := ""
		for i, b := range c.Blocks {
			if i > 0 {
				joined += "\n"
			}
			joined += b.Text
		}
		return joined
	}
	if c.Raw != nil {
		return string(c.Raw)
	}
	return c.Text
}

// ToolResultBlock is {type:"tool_result", tool_use_id, content, is_error?}.
type ToolResultBlock struct {
	ToolUseID string            `json:"tool_use_id"`
	Content   ToolResultContent `json:"content"`
	IsError   bool              `json:"is_error,omitempty"`
}

func (ToolResultBlock) blockType() string { return "tool_result" }

// ThinkingBlock is {type:"thinking", thinking}. Preserved for round-tripping
// but never forwarded upstream (§3, §4.2).
type ThinkingBlock struct {
	Thinking string `json:"thinking"`
}

func (ThinkingBlock) blockType() string { return "thinking" }

func (b ThinkingBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Thinking string `json:"thinking"`
	}{"thinking", b.Thinking})
}

// RawBlock preserves a content block of unrecognized type as its original
// JSON so it round-trips instead of being dropped (§9).
type RawBlock struct {
	Type string
	JSON json.RawMessage
}

func (b RawBlock) blockType() string { return b.Type }

func (b RawBlock) MarshalJSON() ([]byte, error) {
	return b.JSON, nil
}

// AsText renders any block as plain text: text blocks as their text, image
// blocks as "[image omitted]", and every other block type as
// "[unsupported content omitted]".
func AsText(b ContentBlock) string {
	switch v := b.(type) {
	case TextBlock:
		return v.Text
	case rawStringBlock:
		return v.text
	case ImageBlock:
		return "[image omitted]"
	default:
		return "[unsupported content omitted]"
	}
}

// rawStringBlock represents a message whose content was sent as a bare
// string rather than a block array. It is never marshaled directly; callers
// use Message.StringContent to detect it.
type rawStringBlock struct{ text string }

func (rawStringBlock) blockType() string { return "text" }

// Tool is {name, description, input_schema}.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolChoice mirrors Anthropic's tool_choice union: a bare mode string
// ("auto", "any", "none") or {"type":"tool", "name":...}.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

func (t *ToolChoice) UnmarshalJSON(data []byte) error {
	var mode string
	if err := json.Unmarshal(data, &mode); err == nil {
		t.Type = mode
		return nil
	}
	type alias ToolChoice
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = ToolChoice(a)
	return nil
}

// StopReason enumerates Anthropic's terminal reasons for a message.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// Usage carries Anthropic's token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the non-streaming body written back to the client.
type Response struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Role         Role          `json:"role"`
	Model        string        `json:"model"`
	Content      ContentBlocks `json:"content"`
	StopReason   StopReason    `json:"stop_reason"`
	StopSequence *string       `json:"stop_sequence"`
	Usage        Usage         `json:"usage"`
}

// ErrorKind enumerates the taxonomy carried in the error envelope (§6).
type ErrorKind string

const (
	ErrInvalidRequest ErrorKind = "invalid_request_error"
	ErrAuthentication ErrorKind = "authentication_error"
	ErrPermission     ErrorKind = "permission_error"
	ErrNotFound       ErrorKind = "not_found_error"
	ErrRateLimit      ErrorKind = "rate_limit_error"
	ErrAPI            ErrorKind = "api_error"
	ErrOverloaded     ErrorKind = "overloaded_error"
)

// ErrorBody is the {type, message} pair nested under "error" in the
// envelope.
type ErrorBody struct {
	Type    ErrorKind `json:"type"`
	Message string    `json:"message"`
}

// ErrorEnvelope is the wire shape of every error this proxy returns to a
// client, streaming or not (§6).
type ErrorEnvelope struct {
	Type string    `json:"type"`
	Body ErrorBody `json:"error"`
}

// NewError builds an envelope ready to marshal.
func NewError(kind ErrorKind, message string) *ErrorEnvelope {
	return &ErrorEnvelope{Type: "error", Body: ErrorBody{Type: kind, Message: message}}
}

// Error implements the error interface so ErrorEnvelope can travel through
// standard Go error handling (errors.As) the way the teacher's own
// ErrorResponse type does.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Body.Type, e.Body.Message)
}
