package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash command constants.
const (
	cmdHelp   = "/help"
	cmdClear  = "/clear"
	cmdNew    = "/new"
	cmdSearch = "/search"
	cmdAttach = "/attach"
	cmdExit   = "/exit"
	cmdQuit   = "/quit"
)

// keyMap holds key bindings for the help bar.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (t *TUI) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return t.handleCtrlC()
		case 'd':
			return t, t.cleanup()
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		// Enter submits; Shift+Enter passes through as a newline. A turn
		// already in flight blocks submission, not typing.
		if t.state == StateInput && k.Mod&tea.ModShift == 0 {
			return t.handleSubmit()
		}

	case tea.KeyUp:
		if t.state == StateInput && t.input.Line() == 0 {
			return t.navigateHistory(-1)
		}

	case tea.KeyDown:
		if t.state == StateInput && t.input.Line() == t.input.LineCount()-1 {
			return t.navigateHistory(1)
		}

	case tea.KeyEscape:
		if t.state == StateStreaming {
			return t.abortStream()
		}

	case tea.KeyPgUp:
		t.viewport.PageUp()
		return t, nil

	case tea.KeyPgDown:
		t.viewport.PageDown()
		return t, nil
	}

	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

func (t *TUI) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within a second quits.
	if now.Sub(t.lastCtrlC) < time.Second {
		return t, t.cleanup()
	}
	t.lastCtrlC = now

	switch t.state {
	case StateInput:
		t.input.Reset()
		return t, nil

	case StateStreaming:
		return t.abortStream()
	}

	return t, nil
}

// abortStream cancels the in-flight turn. The reduced entry so far is kept
// as an incomplete message.
func (t *TUI) abortStream() (tea.Model, tea.Cmd) {
	if t.reducer != nil && !t.reducer.Done() {
		t.reducer.Abandon()
	}
	model, cmd := t.finishTurn()
	t.addMessage(Message{Role: roleSystem, Text: "(Canceled)"})
	t.rebuildViewportContent()
	return model, cmd
}

func (t *TUI) handleSubmit() (tea.Model, tea.Cmd) {
	message := strings.TrimSpace(t.input.Value())
	if message == "" {
		return t, nil
	}

	if strings.HasPrefix(message, "/") {
		return t.handleSlashCommand(message)
	}

	t.history = append(t.history, message)
	if len(t.history) > maxHistory {
		t.history = t.history[len(t.history)-maxHistory:]
	}
	t.historyIdx = len(t.history)

	// A pending attachment rides along on this turn: the model receives the
	// combined document+message text, the transcript shows the typed message
	// with an attachment indicator.
	sendText, attachLabel := t.consumeAttachment(message)

	t.addMessage(Message{Role: roleUser, Text: message, Attachment: attachLabel})
	t.input.Reset()

	// Block further submits immediately; streamStartedMsg attaches the
	// cancel func and channel once the request goroutine is up.
	t.state = StateStreaming
	t.rebuildViewportContent()
	t.viewport.GotoBottom()

	return t, tea.Batch(
		t.spinner.Tick,
		t.startStream(sendText),
	)
}

func (t *TUI) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(cmd)

	switch fields[0] {
	case cmdHelp:
		t.addMessage(Message{
			Role: roleSystem,
			Text: "Commands: " + strings.Join([]string{cmdHelp, cmdClear, cmdNew, cmdSearch, cmdAttach + " <path>", cmdExit}, ", ") +
				"\nShortcuts:\n  Enter: send message\n  Shift+Enter: new line\n  Ctrl+C: cancel/clear\n  Ctrl+D: exit\n  Up/Down: history\n  PgUp/PgDn: scroll",
		})
	case cmdClear:
		t.messages = nil
	case cmdNew:
		t.conversationID = ""
		t.messages = nil
		t.attachment = nil
		t.addMessage(Message{Role: roleSystem, Text: "(New conversation)"})
	case cmdAttach:
		if len(fields) != 2 {
			t.addMessage(Message{Role: roleError, Text: "Usage: " + cmdAttach + " <path>"})
			break
		}
		t.addMessage(Message{Role: roleSystem, Text: "(Uploading " + fields[1] + "...)"})
		t.input.Reset()
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, t.startAttach(fields[1])
	case cmdSearch:
		t.webSearch = !t.webSearch
		if t.webSearch {
			t.addMessage(Message{Role: roleSystem, Text: "(Web search enabled)"})
		} else {
			t.addMessage(Message{Role: roleSystem, Text: "(Web search disabled)"})
		}
	case cmdExit, cmdQuit:
		return t, t.cleanup()
	default:
		t.addMessage(Message{Role: roleError, Text: "Unknown command: " + cmd})
	}
	t.input.Reset()
	t.rebuildViewportContent()
	t.viewport.GotoBottom()
	return t, nil
}

func (t *TUI) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(t.history) == 0 {
		return t, nil
	}

	t.historyIdx += delta

	if t.historyIdx < 0 {
		t.historyIdx = 0
	}
	if t.historyIdx > len(t.history) {
		t.historyIdx = len(t.history)
	}

	if t.historyIdx == len(t.history) {
		t.input.SetValue("")
	} else {
		t.input.SetValue(t.history[t.historyIdx])
		t.input.CursorEnd()
	}

	return t, nil
}

// cleanup cancels any active stream and returns the quit command.
func (t *TUI) cleanup() tea.Cmd {
	if t.ctxCancel != nil {
		t.ctxCancel()
		t.ctxCancel = nil
	}
	t.stopStream()
	return tea.Quit
}
