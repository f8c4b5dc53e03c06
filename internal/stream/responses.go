package stream

import (
	"iter"

	"github.com/mkroman/model-router-proxy/internal/anthropic"
	"github.com/mkroman/model-router-proxy/internal/openaiwire"
	"github.com/mkroman/model-router-proxy/internal/respond"
)

// responsesBlock remembers which Anthropic content_block index an upstream
// Responses output item maps to, keyed by the item's own id since Responses
// streaming events address content by item_id rather than by ordinal.
type responsesBlock struct {
	anthropicIndex int
	isTool         bool
}

// ResponsesStream drives the Emitter from a Responses API SSE event sequence
// (§4.4). events yields each decoded typed event in order.
func ResponsesStream(events iter.Seq2[openaiwire.StreamEvent, error], emit Emitter, model string) error {
	a := newAssembler(emit, model)
	blocks := make(map[string]*responsesBlock)
	finishToken := ""

	for ev, err := range events {
		if err != nil {
			return a.errorAndStop(anthropic.ErrAPI, err.Error())
		}

		switch ev.Type {
		case "response.created", "response.in_progress":
			if err := a.startMessage(); err != nil {
				return err
			}

		case "response.output_item.added":
			if ev.Item == nil {
				continue
			}
			if err := a.startMessage(); err != nil {
				return err
			}
			if ev.Item.Type == "function_call" {
				idx, err := a.openTool(ev.Item.CallID, ev.Item.Name)
				if err != nil {
					return err
				}
				blocks[ev.Item.ID] = &responsesBlock{anthropicIndex: idx, isTool: true}
			}
			// message items open their text block lazily on the first
			// output_text.delta instead, since Responses doesn't guarantee
			// text content up front.

		case "response.output_text.delta":
			idx, err := a.openText()
			if err != nil {
				return err
			}
			blocks[ev.ItemID] = &responsesBlock{anthropicIndex: idx}
			if err := a.textDelta(idx, ev.Delta); err != nil {
				return err
			}

		case "response.function_call_arguments.delta":
			b, ok := blocks[ev.ItemID]
			if !ok {
				continue
			}
			if err := a.jsonDelta(b.anthropicIndex, ev.Delta); err != nil {
				return err
			}

		case "response.output_item.done", "response.content_part.done":
			if err := a.closeBlock(); err != nil {
				return err
			}

		case "response.completed", "response.incomplete", "response.failed":
			if ev.Response != nil {
				if ev.Response.Usage != nil {
					a.recordUsage(ev.Response.Usage.InputTokens, ev.Response.Usage.OutputTokens)
				}
				finishToken = responsesFinishToken(ev.Response)
			}

		case "response.error":
			msg := "upstream error"
			if ev.Error != nil && ev.Error.Message != "" {
				msg = ev.Error.Message
			}
			return a.errorAndStop(anthropic.ErrAPI, msg)
		}
	}

	return a.finish(respond.MapFinishReason(finishToken))
}

func responsesFinishToken(resp *openaiwire.Response) string {
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
