// Package event defines the wire protocol between the quill server and its
// clients: a tagged union of stream envelopes, the SSE framing used to carry
// them, and an incremental line assembler for the receiving side.
//
// One turn produces an ordered sequence of envelopes ending in exactly one
// terminal envelope (done or error). Nothing follows the terminal envelope.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Kind discriminates the envelope union.
type Kind string

// Envelope kinds.
const (
	KindContent   Kind = "content"    // partial assistant text
	KindToolStart Kind = "tool_start" // tool began executing
	KindToolEnd   Kind = "tool_end"   // tool finished executing
	KindDone      Kind = "done"       // turn completed, carries conversation id
	KindError     Kind = "error"      // turn failed, carries message
)

// Sentinel errors for envelope decoding and validation.
var (
	ErrUnknownKind = errors.New("unknown envelope kind")
	ErrEmptyFrame  = errors.New("empty envelope frame")
)

// Envelope is one discrete unit of the server→client stream. Exactly one
// kind per envelope; the payload field that matters depends on the kind.
// The kind is serialized under the JSON key "type".
type Envelope struct {
	Kind           Kind   `json:"type"`
	Content        string `json:"content,omitempty"`
	Tool           string `json:"tool,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Content builds a content envelope. Empty text is legal (a no-op for the
// reducer) but producers should prefer emitting nothing.
func Content(text string) Envelope {
	return Envelope{Kind: KindContent, Content: text}
}

// ToolStart builds a tool_start envelope for the named tool.
func ToolStart(tool string) Envelope {
	return Envelope{Kind: KindToolStart, Tool: tool}
}

// ToolEnd builds a tool_end envelope for the named tool.
func ToolEnd(tool string) Envelope {
	return Envelope{Kind: KindToolEnd, Tool: tool}
}

// Done builds the successful terminal envelope carrying the confirmed
// conversation id.
func Done(conversationID string) Envelope {
	return Envelope{Kind: KindDone, ConversationID: conversationID}
}

// Errorf builds the failure terminal envelope with a formatted message.
func Errorf(format string, args ...any) Envelope {
	return Envelope{Kind: KindError, Error: fmt.Sprintf(format, args...)}
}

// Terminal reports whether the envelope closes its turn.
func (e Envelope) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

// Validate checks that the kind is known and the tool correlation key is
// present where required.
func (e Envelope) Validate() error {
	switch e.Kind {
	case KindContent, KindDone, KindError:
		return nil
	case KindToolStart, KindToolEnd:
		if e.Tool == "" {
			return fmt.Errorf("%s envelope missing tool name", e.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// Decode parses one JSON frame payload into an Envelope.
func Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, ErrEmptyFrame
	}

	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Writer serializes envelopes as SSE frames ("data: <json>\n\n") and flushes
// each frame immediately so no envelope waits on a later one. The write side
// is single-producer; Writer does no locking of its own.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w implements http.Flusher (or flusher is passed
// explicitly), every frame is flushed after writing.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// NewFlushWriter wraps w with an explicit flusher, for ResponseWriter
// wrappers that do not expose Flusher themselves.
func NewFlushWriter(w io.Writer, f http.Flusher) *Writer {
	return &Writer{w: w, flusher: f}
}

// Write emits one envelope as a single SSE frame.
func (sw *Writer) Write(e Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}

	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}
