package respond

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// NewMessageID generates an Anthropic-style message id (msg_<token>), used
// as a fallback when the upstream response carries none, the same pattern
// the teacher uses for its own response-id generation. Also used by the
// Stream Translator to synthesize the id for message_start.
func NewMessageID() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "msg_" + base64.RawURLEncoding.EncodeToString(b)
}

// withMsgPrefix ensures id carries the "msg_" prefix Anthropic ids use,
// generating a fresh one if id is empty (§4.3: "the Anthropic id is the
// upstream id, prefixed msg_ if not already").
func withMsgPrefix(id string) string {
	if id == "" {
		return NewMessageID()
	}
	if strings.HasPrefix(id, "msg_") {
		return id
	}
	return "msg_" + id
}
