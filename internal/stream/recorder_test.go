package stream

import "fmt"

// recordingEmitter captures every emitted event for assertion, and enforces
// the balance invariants (§8) as a side effect of recording.
type recordingEmitter struct {
	events       []string
	payloads     []any
	openBlocks   map[int]bool
	sawStart     bool
	sawStop      bool
	maxIndexSeen int
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{openBlocks: make(map[int]bool), maxIndexSeen: -1}
}

func (r *recordingEmitter) Emit(event string, payload any) error {
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)

	switch p := payload.(type) {
	case messageStartPayload:
		if r.sawStart {
			return fmt.Errorf("message_start emitted twice")
		}
		r.sawStart = true
	case messageStopPayload:
		if r.sawStop {
			return fmt.Errorf("message_stop emitted twice")
		}
		r.sawStop = true
	case contentBlockStartPayload:
		if r.openBlocks[p.Index] {
			return fmt.Errorf("content_block_start for already-open index %d", p.Index)
		}
		for idx := range r.openBlocks {
			if idx != p.Index {
				return fmt.Errorf("content_block_start for index %d while %d is still open", p.Index, idx)
			}
		}
		if p.Index != r.maxIndexSeen+1 {
			return fmt.Errorf("content_block_start index %d is not dense (expected %d)", p.Index, r.maxIndexSeen+1)
		}
		r.maxIndexSeen = p.Index
		r.openBlocks[p.Index] = true
	case contentBlockStopPayload:
		if !r.openBlocks[p.Index] {
			return fmt.Errorf("content_block_stop for index %d that was never opened", p.Index)
		}
		delete(r.openBlocks, p.Index)
	}
	return nil
}

func (r *recordingEmitter) textOf(index int) string {
	var out string
	for _, p := range r.payloads {
		d, ok := p.(contentBlockDeltaPayload)
		if !ok || d.Index != index {
			continue
		}
		if td, ok := d.Delta.(textDeltaPayload); ok {
			out += td.Text
		}
	}
	return out
}

func (r *recordingEmitter) jsonOf(index int) string {
	var out string
	for _, p := range r.payloads {
		d, ok := p.(contentBlockDeltaPayload)
		if !ok || d.Index != index {
			continue
		}
		if jd, ok := d.Delta.(jsonDeltaPayload); ok {
			out += jd.PartialJSON
		}
	}
	return out
}
