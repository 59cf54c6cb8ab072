package event

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"
)

// readChunkSize is the per-read buffer for Stream. Small enough that a slow
// producer is not delayed, large enough that a fast one is not syscall-bound.
const readChunkSize = 4096

// dataPrefix marks SSE frame payload lines.
const dataPrefix = "data:"

// LineAssembler accumulates bytes from arbitrarily chunked reads and yields
// complete lines. A frame's bytes never need to coincide with a single read;
// the assembler buffers at most one pending partial line.
type LineAssembler struct {
	buf bytes.Buffer
}

// Feed appends p to the pending buffer and returns every complete line it
// now holds, without trailing newline and with a trailing \r trimmed.
func (a *LineAssembler) Feed(p []byte) []string {
	a.buf.Write(p)

	var lines []string
	for {
		raw := a.buf.Bytes()
		i := bytes.IndexByte(raw, '\n')
		if i < 0 {
			return lines
		}
		line := string(bytes.TrimSuffix(raw[:i], []byte{'\r'}))
		a.buf.Next(i + 1)
		lines = append(lines, line)
	}
}

// Pending returns the buffered partial line, if any. Used by consumers that
// want to surface truncation on stream close.
func (a *LineAssembler) Pending() string {
	return a.buf.String()
}

// Stream decodes SSE frames from r into a lazy, finite, non-restartable
// sequence of envelopes. Lines without a data prefix (blank separators, SSE
// comments) are skipped. The sequence ends at EOF; a read error or a
// malformed frame is yielded once and ends the sequence.
func Stream(r io.Reader) iter.Seq2[Envelope, error] {
	return func(yield func(Envelope, error) bool) {
		var assembler LineAssembler
		chunk := make([]byte, readChunkSize)

		for {
			n, err := r.Read(chunk)
			if n > 0 {
				for _, line := range assembler.Feed(chunk[:n]) {
					payload, ok := framePayload(line)
					if !ok {
						continue
					}
					e, decodeErr := Decode([]byte(payload))
					if decodeErr != nil {
						yield(Envelope{}, decodeErr)
						return
					}
					if !yield(e, nil) {
						return
					}
				}
			}

			if err != nil {
				if err != io.EOF {
					yield(Envelope{}, fmt.Errorf("read stream: %w", err))
				}
				return
			}
		}
	}
}

// framePayload extracts the JSON payload from an SSE data line.
// Returns ok=false for separators, comments, and other field lines.
func framePayload(line string) (string, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := strings.TrimPrefix(line, dataPrefix)
	payload = strings.TrimPrefix(payload, " ")
	if payload == "" {
		return "", false
	}
	return payload, true
}
