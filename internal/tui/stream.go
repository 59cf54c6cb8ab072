package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"

	"github.com/quill-ai/quill/internal/client"
	"github.com/quill-ai/quill/internal/event"
)

// streamBufferSize absorbs envelope bursts during UI render delays while
// keeping memory bounded.
const streamBufferSize = 100

// streamEvent is a discriminated union; exactly one field is set per event.
type streamEvent struct {
	envelope event.Envelope
	valid    bool  // envelope is set
	err      error // transport failure
}

// Stream message types for Bubble Tea.
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamEnvelopeMsg struct {
	envelope event.Envelope
}

// streamClosedMsg signals the stream ended without a terminal envelope.
type streamClosedMsg struct {
	err error
}

// startStream starts one turn against the server and bridges the envelope
// iterator into the Bubble Tea event loop.
//
// The spawned goroutine exits when the iterator ends (terminal envelope,
// transport error, or context cancellation). Channel closure signals
// completion; no WaitGroup needed.
func (t *TUI) startStream(message string) tea.Cmd {
	req := client.TurnRequest{
		Message:          message,
		ModelID:          t.modelID,
		ConversationID:   t.conversationID,
		WebSearchEnabled: t.webSearch,
	}

	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)
		ctx, cancel := context.WithCancel(t.ctx)

		go func() {
			defer close(eventCh)

			defer func() {
				if r := recover(); r != nil {
					slog.Error("stream panic recovered", "panic", r)
					select {
					case eventCh <- streamEvent{err: fmt.Errorf("stream panic: %v", r)}:
					default:
					}
				}
			}()

			for env, err := range t.api.Chat(ctx, req) {
				if err != nil {
					select {
					case eventCh <- streamEvent{err: err}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case eventCh <- streamEvent{envelope: env, valid: true}:
				case <-ctx.Done():
					return
				}
			}
		}()

		return streamStartedMsg{eventCh: eventCh, cancel: cancel}
	}
}

// listenForStream waits for the next stream event. Empty events are skipped
// via loop rather than recursion.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		for {
			ev, ok := <-eventCh
			if !ok {
				return streamClosedMsg{}
			}

			switch {
			case ev.err != nil:
				return streamClosedMsg{err: ev.err}
			case ev.valid:
				return streamEnvelopeMsg{envelope: ev.envelope}
			default:
				continue
			}
		}
	}
}

// toolDisplayName maps wire tool names to badge labels.
func toolDisplayName(name string) string {
	switch name {
	case "web_search":
		return "Searching the web"
	case "save_artifact":
		return "Saving artifact"
	case "list_artifacts":
		return "Listing artifacts"
	case "read_artifact":
		return "Reading artifact"
	default:
		return name
	}
}
