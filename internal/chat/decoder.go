package chat

import (
	"bytes"
	"encoding/json"
	"strings"
)

const doneMarker = "[DONE]"

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder turns the raw bytes of an event stream into content deltas.
// Network reads can split a line anywhere, so bytes after the last newline
// stay buffered until the rest arrives. A complete line whose payload is not
// valid JSON is held back and retried joined with the next line; if that
// also fails it is dropped and decoding resyncs on the following line.
type Decoder struct {
	buf     []byte
	held    string
	done    bool
	flushed bool
	dropped int
}

// Feed consumes a chunk and returns the deltas completed by it.
func (d *Decoder) Feed(chunk []byte) []string {
	if d.done || d.flushed {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var out []string
	for !d.done {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]
		if delta, ok := d.line(line); ok {
			out = append(out, delta)
		}
	}
	if d.done {
		d.buf = nil
	}
	return out
}

// Flush decodes whatever is left once the stream has ended. Done stays false unless the terminating marker was among them.
func (d *Decoder) Flush() []string {
	if d.done || d.flushed {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(d.buf), "\n") {
		if delta, ok := d.line(line); ok {
			out = append(out, delta)
		}
	}
	d.buf = nil
	if d.held != "" {
		d.dropped++
		d.held = ""
	}
	d.flushed = true
	return out
}

// Done reports whether the terminating marker was seen.
func (d *Decoder) Done() bool { return d.done }

// Dropped counts lines that never decoded.
func (d *Decoder) Dropped() int { return d.dropped }

func (d *Decoder) line(raw string) (string, bool) {
	raw = strings.TrimSuffix(raw, "\r")
	if strings.TrimSpace(raw) == "" || strings.HasPrefix(raw, ":") {
		return "", false
	}
	payload, isData := strings.CutPrefix(raw, "data:")
	if !isData {
		// Continuation of a held line that was broken across a newline.
		if d.held == "" {
			return "", false
		}
		payload = raw
	}
	payload = strings.TrimSpace(payload)

	if d.held != "" {
		joined := d.held + payload
		d.held = ""
		if delta, ok := decodePayload(joined); ok {
			return delta, delta != ""
		}
		d.dropped++
		if !isData {
			return "", false
		}
	}

	if payload == doneMarker {
		d.done = true
		return "", false
	}
	delta, ok := decodePayload(payload)
	if !ok {
		d.held = payload
		return "", false
	}
	return delta, delta != ""
}

func decodePayload(payload string) (string, bool) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", true
	}
	return chunk.Choices[0].Delta.Content, true
}
