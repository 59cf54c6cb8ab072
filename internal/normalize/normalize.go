// Package normalize converts runtime callbacks, whose payload shape varies by
// provider, into the uniform envelope stream the wire protocol promises. It
// fails closed: a payload shape it does not recognize aborts the turn rather
// than guessing at its contents.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/event"
	"github.com/quill-ai/quill/internal/log"
)

// ErrNormalization marks a callback payload whose shape the normalizer does
// not recognize. Silently dropping it would hide assistant output, so the
// turn fails instead.
var ErrNormalization = errors.New("unrecognized callback payload shape")

// ErrTerminal marks a callback arriving after the turn already emitted its
// terminal envelope.
var ErrTerminal = errors.New("stream already terminated")

// Sink receives each normalized envelope in order. A sink error aborts the
// turn.
type Sink func(event.Envelope) error

// Normalizer folds one turn's callbacks into envelopes and accumulates the
// assistant text so the caller can persist it after a successful turn.
// Not safe for concurrent use; callbacks within a turn are serialized.
type Normalizer struct {
	sink   Sink
	logger log.Logger

	text      strings.Builder
	openTools map[string]int
	done      bool
}

// New returns a Normalizer for a single turn.
func New(sink Sink, logger log.Logger) *Normalizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Normalizer{
		sink:      sink,
		logger:    logger,
		openTools: make(map[string]int),
	}
}

// Handle implements agent.Handler.
func (n *Normalizer) Handle(_ context.Context, cb agent.Callback) error {
	if n.done {
		return ErrTerminal
	}

	switch cb.Kind {
	case agent.CallbackModelChunk:
		text, err := chunkText(cb.Payload)
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		n.text.WriteString(text)
		return n.sink(event.Content(text))

	case agent.CallbackToolStart:
		n.openTools[cb.Tool]++
		return n.sink(event.ToolStart(cb.Tool))

	case agent.CallbackToolEnd:
		if n.openTools[cb.Tool] == 0 {
			// Still forwarded: clients treat an unmatched end as a
			// completed call with no visible running phase.
			n.logger.Warn("tool end without matching start", "tool", cb.Tool)
		} else {
			n.openTools[cb.Tool]--
		}
		return n.sink(event.ToolEnd(cb.Tool))

	default:
		return fmt.Errorf("unknown callback kind %q", cb.Kind)
	}
}

// Text returns the assistant text accumulated so far.
func (n *Normalizer) Text() string {
	return n.text.String()
}

// FinishSuccess emits the done envelope carrying the conversation id. At most
// one terminal envelope is ever emitted; later calls are no-ops.
func (n *Normalizer) FinishSuccess(conversationID string) error {
	if n.done {
		return nil
	}
	n.done = true
	return n.sink(event.Done(conversationID))
}

// FinishError emits the error envelope. Like FinishSuccess it is a no-op once
// a terminal envelope has gone out.
func (n *Normalizer) FinishError(message string) error {
	if n.done {
		return nil
	}
	n.done = true
	return n.sink(event.Errorf("%s", message))
}

// Terminated reports whether a terminal envelope has been emitted.
func (n *Normalizer) Terminated() bool {
	return n.done
}

// chunkText extracts displayable text from a model chunk payload. Providers
// deliver either a plain string or a slice of typed blocks; only text-bearing
// blocks contribute, in order.
func chunkText(payload any) (string, error) {
	switch v := payload.(type) {
	case string:
		return v, nil
	case []agent.Block:
		var b strings.Builder
		for _, block := range v {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrNormalization, payload)
	}
}
