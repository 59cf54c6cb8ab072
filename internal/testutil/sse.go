// Package testutil holds shared test helpers: an SSE frame parser for
// asserting on streamed responses and a scripted runtime for driving turns
// without a model.
package testutil

import (
	"bufio"
	"strings"
	"testing"

	"github.com/quill-ai/quill/internal/event"
)

// ParseFrames parses a data-only SSE stream into its raw data payloads.
//
// The chat stream never uses "event:" lines; every frame is a single
// "data: <json>" line terminated by a blank line. Comments starting with ":"
// are ignored per the SSE spec.
func ParseFrames(t *testing.T, body string) []string {
	t.Helper()

	var frames []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			frames = append(frames, strings.TrimPrefix(line, "data: "))
		case line == "" || strings.HasPrefix(line, ":"):
			// frame separator or comment
		default:
			t.Fatalf("SSE parse error at line %d: unexpected line %q", lineNum, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("SSE scan error: %v", err)
	}
	return frames
}

// ParseEnvelopes parses a data-only SSE stream into decoded envelopes,
// failing the test on any malformed frame.
func ParseEnvelopes(t *testing.T, body string) []event.Envelope {
	t.Helper()

	frames := ParseFrames(t, body)
	envelopes := make([]event.Envelope, 0, len(frames))
	for i, frame := range frames {
		env, err := event.Decode([]byte(frame))
		if err != nil {
			t.Fatalf("decode frame %d (%q): %v", i, frame, err)
		}
		envelopes = append(envelopes, env)
	}
	return envelopes
}

// FindEnvelope returns the first envelope of the given kind, or nil.
func FindEnvelope(envelopes []event.Envelope, kind event.Kind) *event.Envelope {
	for i := range envelopes {
		if envelopes[i].Kind == kind {
			return &envelopes[i]
		}
	}
	return nil
}

// FilterEnvelopes returns all envelopes of the given kind.
func FilterEnvelopes(envelopes []event.Envelope, kind event.Kind) []event.Envelope {
	var found []event.Envelope
	for _, e := range envelopes {
		if e.Kind == kind {
			found = append(found, e)
		}
	}
	return found
}

// ContentText concatenates the content of every content envelope, in order.
func ContentText(envelopes []event.Envelope) string {
	var b strings.Builder
	for _, e := range envelopes {
		if e.Kind == event.KindContent {
			b.WriteString(e.Content)
		}
	}
	return b.String()
}
