// Package stream reassembles the chat completion event stream on the client
// side and extracts product references embedded in the assistant text.
package stream

import (
	"encoding/json"
	"strings"
)

// doneMarker is the literal terminal frame of the event stream.
const doneMarker = "[DONE]"

// chunk mirrors the provider frame shape:
// data: {"choices":[{"delta":{"content":"..."}}]}
type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Reassembler consumes an event stream incrementally. Feed it raw transport
// chunks; it accumulates assistant text across frames. A data frame whose
// JSON payload fails to parse is re-queued and retried once the next chunk
// arrives, tolerating a content boundary that split a frame in two.
type Reassembler struct {
	pending string
	content strings.Builder
	done    bool
}

func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed consumes one transport chunk and returns the content deltas it
// completed, in order.
func (r *Reassembler) Feed(data []byte) []string {
	if r.done {
		return nil
	}

	r.pending += string(data)
	var deltas []string

	for {
		idx := strings.IndexByte(r.pending, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(r.pending[:idx], "\r")
		rest := r.pending[idx+1:]

		// Comment and blank frames carry nothing.
		if strings.HasPrefix(line, ":") || strings.TrimSpace(line) == "" {
			r.pending = rest
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			r.pending = rest
			continue
		}

		payload := strings.TrimSpace(line[len("data: "):])
		if payload == doneMarker {
			r.done = true
			r.pending = ""
			return deltas
		}

		var c chunk
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			// Likely a frame split across transport chunks: keep the
			// unparsed line and wait for more bytes before retrying.
			return deltas
		}
		r.pending = rest

		if len(c.Choices) > 0 && c.Choices[0].Delta.Content != "" {
			delta := c.Choices[0].Delta.Content
			r.content.WriteString(delta)
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// Content returns the assistant text accumulated so far.
func (r *Reassembler) Content() string {
	return r.content.String()
}

// Done reports whether the terminal frame has been seen.
func (r *Reassembler) Done() bool {
	return r.done
}
