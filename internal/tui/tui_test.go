package tui

import (
	"context"
	"testing"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	"go.uber.org/goleak"

	"github.com/quill-ai/quill/internal/client"
	"github.com/quill-ai/quill/internal/event"
)

// goleakOptions filters persistent goroutines expected to exist.
func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
	}
}

// newTestTUI creates a TUI with an initialized textarea, no real client.
func newTestTUI() *TUI {
	ta := textarea.New()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	return &TUI{
		state:    StateInput,
		input:    ta,
		viewport: viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		history:  make([]string, 0),
		styles:   DefaultStyles(),
		markdown: newMarkdownRenderer(80),
		ctx:      context.Background(),
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(context.Background(), nil, "model"); err == nil {
		t.Error("expected error for nil client")
	}

	//lint:ignore SA1012 intentionally testing nil context handling
	if _, err := New(nil, client.New("http://localhost"), "model"); err == nil { //nolint:staticcheck
		t.Error("expected error for nil context")
	}
}

func TestInit(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	if cmd := tui.Init(); cmd == nil {
		t.Error("Init should return a command (blink + spinner tick)")
	}
}

func TestHandleSlashCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tests := []struct {
		name     string
		cmd      string
		wantExit bool
		wantMsgs int // messages added on top of the seeded one
	}{
		{"help", "/help", false, 1},
		{"clear", "/clear", false, 0},
		{"search toggle", "/search", false, 1},
		{"exit", "/exit", true, 0},
		{"quit", "/quit", true, 0},
		{"unknown", "/bogus", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tui := newTestTUI()
			tui.messages = []Message{{Role: roleUser, Text: "hello"}}

			model, cmd := tui.handleSlashCommand(tt.cmd)
			result := model.(*TUI)

			if tt.wantExit {
				if cmd == nil {
					t.Error("expected quit command")
				}
				return
			}

			switch tt.cmd {
			case cmdClear:
				if len(result.messages) != 0 {
					t.Error("/clear should drop all messages")
				}
			default:
				if got := len(result.messages); got != 1+tt.wantMsgs {
					t.Errorf("expected %d messages, got %d", 1+tt.wantMsgs, got)
				}
			}
		})
	}
}

func TestSlashNewResetsConversation(t *testing.T) {
	tui := newTestTUI()
	tui.conversationID = "abc"
	tui.messages = []Message{{Role: roleUser, Text: "hello"}}

	tui.handleSlashCommand(cmdNew)

	if tui.conversationID != "" {
		t.Errorf("expected conversation id cleared, got %q", tui.conversationID)
	}
}

func TestSlashSearchToggles(t *testing.T) {
	tui := newTestTUI()

	tui.handleSlashCommand(cmdSearch)
	if !tui.webSearch {
		t.Error("expected web search enabled")
	}
	tui.handleSlashCommand(cmdSearch)
	if tui.webSearch {
		t.Error("expected web search disabled")
	}
}

func TestStreamEnvelopesReduceIntoTranscript(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.state = StateStreaming
	tui.reducer = client.NewReducer()

	envelopes := []event.Envelope{
		event.ToolStart("web_search"),
		event.Content("The answer"),
		event.ToolEnd("web_search"),
		event.Content(" is 42."),
		event.Done("abc"),
	}
	for _, env := range envelopes {
		tui.Update(streamEnvelopeMsg{envelope: env})
	}

	if tui.state != StateInput {
		t.Errorf("expected StateInput after done, got %v", tui.state)
	}
	if tui.conversationID != "abc" {
		t.Errorf("expected conversation id abc, got %q", tui.conversationID)
	}
	if len(tui.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(tui.messages))
	}

	msg := tui.messages[0]
	if msg.Role != roleAssistant {
		t.Errorf("expected assistant message, got %q", msg.Role)
	}
	if msg.Text != "The answer is 42." {
		t.Errorf("unexpected text %q", msg.Text)
	}
	if len(msg.Badges) != 1 || msg.Badges[0].State != client.BadgeComplete {
		t.Errorf("expected one complete badge, got %+v", msg.Badges)
	}
}

func TestStreamErrorBecomesErrorMessage(t *testing.T) {
	tui := newTestTUI()
	tui.state = StateStreaming
	tui.reducer = client.NewReducer()

	tui.Update(streamEnvelopeMsg{envelope: event.Content("partial")})
	tui.Update(streamEnvelopeMsg{envelope: event.Errorf("model unavailable")})

	if tui.state != StateInput {
		t.Errorf("expected StateInput after error, got %v", tui.state)
	}
	if len(tui.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(tui.messages))
	}
	if tui.messages[0].Role != roleError {
		t.Errorf("expected error role, got %q", tui.messages[0].Role)
	}
	if tui.messages[0].Text != "model unavailable" {
		t.Errorf("unexpected text %q", tui.messages[0].Text)
	}
	if tui.conversationID != "" {
		t.Error("error turn must not confirm a conversation id")
	}
}

func TestStreamClosedWithoutTerminal(t *testing.T) {
	tui := newTestTUI()
	tui.state = StateStreaming
	tui.reducer = client.NewReducer()

	tui.Update(streamEnvelopeMsg{envelope: event.Content("partial text")})
	tui.Update(streamClosedMsg{})

	if tui.state != StateInput {
		t.Errorf("expected StateInput, got %v", tui.state)
	}
	if len(tui.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(tui.messages))
	}
	// Partial text is kept as an incomplete entry.
	if tui.messages[0].Text != "partial text" {
		t.Errorf("unexpected text %q", tui.messages[0].Text)
	}
}

func TestMessageBound(t *testing.T) {
	tui := newTestTUI()
	for range maxMessages + 10 {
		tui.addMessage(Message{Role: roleUser, Text: "x"})
	}
	if len(tui.messages) != maxMessages {
		t.Errorf("expected %d messages, got %d", maxMessages, len(tui.messages))
	}
}

func TestToolDisplayName(t *testing.T) {
	if got := toolDisplayName("web_search"); got != "Searching the web" {
		t.Errorf("unexpected display name %q", got)
	}
	if got := toolDisplayName("custom_tool"); got != "custom_tool" {
		t.Errorf("unknown tools keep their wire name, got %q", got)
	}
}
