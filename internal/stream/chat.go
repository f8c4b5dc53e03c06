package stream

import (
	"encoding/json"
	"fmt"
	"iter"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/respond"
)

// chatToolBlock tracks one in-flight tool_use block keyed by the upstream
// tool-call ordinal, since Chat Completions streams a tool call's id and
// name once and its arguments in fragments afterward, all addressed only by
// index.
type chatToolBlock struct {
	anthropicIndex int
	id             string
	name           string
}

// ChatStream drives the Emitter from a Chat Completions SSE line sequence
// (§4.4). lines yields each "data: ..." payload already stripped of the
// event framing, in order, ending with the literal "[DONE]" line or a
// non-nil error.
func ChatStream(lines iter.Seq2[string, error], emit Emitter, model string) error {
	a := newAssembler(emit, model)
	toolIdx := make(map[int]*chatToolBlock)
	finishToken := ""

	for line, err := range lines {
		if err != nil {
			return a.errorAndStop(anthropic.ErrAPI, err.Error())
		}
		if line == "[DONE]" {
			break
		}

		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			// Malformed frames are skipped rather than aborting the stream (§9).
			continue
		}
		if chunk.Usage != nil {
			a.recordUsage(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if err := a.startMessage(); err != nil {
			return err
		}

		if choice.Delta.Content != "" {
			idx, err := a.openText()
			if err != nil {
				return err
			}
			if err := a.textDelta(idx, choice.Delta.Content); err != nil {
				return err
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			ordinal := 0
			if tc.Index != nil {
				ordinal = *tc.Index
			}
			block, known := toolIdx[ordinal]
			if !known {
				id := tc.ID
				if id == "" {
					id = syntheticToolID(ordinal)
				}
				idx, err := a.openTool(id, tc.Function.Name)
				if err != nil {
					return err
				}
				block = &chatToolBlock{anthropicIndex: idx, id: id, name: tc.Function.Name}
				toolIdx[ordinal] = block
			}
			if tc.Function.Arguments != "" {
				if err := a.jsonDelta(block.anthropicIndex, tc.Function.Arguments); err != nil {
					return err
				}
			}
		}

		if choice.FinishReason != "" {
			finishToken = string(choice.FinishReason)
		}
	}

	return a.finish(respond.MapFinishReason(finishToken))
}

func syntheticToolID(ordinal int) string {
	return fmt.Sprintf("toolu_%d", ordinal)
}
