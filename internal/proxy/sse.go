package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEWriter frames Server-Sent Events in Anthropic's "event: <name>\ndata:
// <json>\n\n" shape and flushes after every event for real-time delivery
// (§4.7, §6).
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for an SSE response. It fails if the underlying
// ResponseWriter cannot be flushed incrementally.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes a single "event: <name>" line.
func (s *SSEWriter) WriteEvent(name string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
		return err
	}
	return nil
}

// WriteData marshals payload and writes it as a "data: <json>\n\n" frame,
// flushing immediately afterward.
func (s *SSEWriter) WriteData(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Emit implements stream.Emitter by writing the event name and its JSON
// payload as one SSE frame.
func (s *SSEWriter) Emit(event string, payload any) error {
	if err := s.WriteEvent(event); err != nil {
		return err
	}
	return s.WriteData(payload)
}
