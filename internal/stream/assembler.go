package stream

import (
	"encoding/json"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/respond"
)

type blockKind int

const (
	kindNone blockKind = iota
	kindText
	kindTool
)

// assembler owns the per-stream StreamAssemblyState (§3) and enforces its
// invariants: at most one open block, dense indices starting at 0, exactly
// one message_start and one message_stop.
type assembler struct {
	emit  Emitter
	model string

	started  bool
	finished bool

	openIndex int
	openKind  blockKind
	nextIndex int

	inputTokens  int
	outputTokens int
	usageKnown   bool
}

func newAssembler(emit Emitter, model string) *assembler {
	return &assembler{emit: emit, model: model, openIndex: -1}
}

// startMessage emits message_start exactly once, idempotently.
func (a *assembler) startMessage() error {
	if a.started {
		return nil
	}
	a.started = true
	return a.emit.Emit("message_start", messageStartPayload{
		Type: "message_start",
		Message: messageSkeleton{
			ID:      respond.NewMessageID(),
			Type:    "message",
			Role:    "assistant",
			Content: []struct{}{},
			Model:   a.model,
			Usage:   anthropic.Usage{InputTokens: a.inputTokens, OutputTokens: 0},
		},
	})
}

// recordUsage folds in the latest usage snapshot observed on an upstream
// chunk; later snapshots overwrite earlier ones (§4.4: "usage (if present):
// record").
func (a *assembler) recordUsage(inputTokens, outputTokens int) {
	a.usageKnown = true
	a.inputTokens = inputTokens
	a.outputTokens = outputTokens
}

// openText opens a text block at the next free index if one isn't already
// open, closing any other open block first.
func (a *assembler) openText() (int, error) {
	if a.openKind == kindText {
		return a.openIndex, nil
	}
	if err := a.closeBlock(); err != nil {
		return 0, err
	}
	idx := a.nextIndex
	a.nextIndex++
	a.openIndex = idx
	a.openKind = kindText
	err := a.emit.Emit("content_block_start", contentBlockStartPayload{
		Type:         "content_block_start",
		Index:        idx,
		ContentBlock: textBlockPayload{Type: "text", Text: ""},
	})
	return idx, err
}

// openTool opens a tool_use block at the next free index, closing any other
// open block first.
func (a *assembler) openTool(id, name string) (int, error) {
	if err := a.closeBlock(); err != nil {
		return 0, err
	}
	idx := a.nextIndex
	a.nextIndex++
	a.openIndex = idx
	a.openKind = kindTool
	err := a.emit.Emit("content_block_start", contentBlockStartPayload{
		Type:  "content_block_start",
		Index: idx,
		ContentBlock: toolBlockPayload{
			Type:  "tool_use",
			ID:    id,
			Name:  name,
			Input: json.RawMessage("{}"),
		},
	})
	return idx, err
}

func (a *assembler) textDelta(index int, text string) error {
	return a.emit.Emit("content_block_delta", contentBlockDeltaPayload{
		Type:  "content_block_delta",
		Index: index,
		Delta: textDeltaPayload{Type: "text_delta", Text: text},
	})
}

func (a *assembler) jsonDelta(index int, partialJSON string) error {
	return a.emit.Emit("content_block_delta", contentBlockDeltaPayload{
		Type:  "content_block_delta",
		Index: index,
		Delta: jsonDeltaPayload{Type: "input_json_delta", PartialJSON: partialJSON},
	})
}

func (a *assembler) closeBlock() error {
	if a.openKind == kindNone {
		return nil
	}
	idx := a.openIndex
	a.openKind = kindNone
	a.openIndex = -1
	return a.emit.Emit("content_block_stop", contentBlockStopPayload{Type: "content_block_stop", Index: idx})
}

// finish closes any dangling block and emits the terminal message_delta +
// message_stop pair exactly once, even if no content was ever produced
// (§8: "single frame" invariant).
func (a *assembler) finish(stopReason anthropic.StopReason) error {
	if a.finished {
		return nil
	}
	if err := a.closeBlock(); err != nil {
		return err
	}
	if err := a.startMessage(); err != nil {
		return err
	}
	a.finished = true

	usage := messageDeltaUsage{OutputTokens: a.outputTokens}
	if a.usageKnown {
		in := a.inputTokens
		usage.InputTokens = &in
	}

	if err := a.emit.Emit("message_delta", messageDeltaPayload{
		Type:  "message_delta",
		Delta: messageDeltaDelta{StopReason: stopReason, StopSequence: nil},
		Usage: usage,
	}); err != nil {
		return err
	}
	return a.emit.Emit("message_stop", messageStopPayload{Type: "message_stop"})
}

// errorAndStop emits the error+message_stop terminal sequence used when the
// upstream fails mid-flight (§7.4). message_start is not synthesized if the
// failure happened before any content was produced.
func (a *assembler) errorAndStop(kind anthropic.ErrorKind, message string) error {
	if a.finished {
		return nil
	}
	a.finished = true
	if err := a.emit.Emit("error", anthropic.NewError(kind, message)); err != nil {
		return err
	}
	return a.emit.Emit("message_stop", messageStopPayload{Type: "message_stop"})
}
