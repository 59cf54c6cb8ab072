package tui

import (
	"fmt"
	"os"
	"path/filepath"

	tea "charm.land/bubbletea/v2"

	"github.com/quill-ai/quill/internal/upload"
)

// attachDoneMsg carries a processed attachment back to the event loop. It
// stays pending until the next submitted turn consumes it.
type attachDoneMsg struct {
	attachment upload.Attachment
}

// attachFailedMsg reports an upload failure. Any pending attachment is
// dropped so the next turn is never sent with a silent empty document.
type attachFailedMsg struct {
	err error
}

// startAttach reads the file and uploads it for extraction off the event
// loop.
func (t *TUI) startAttach(path string) tea.Cmd {
	ctx := t.ctx
	api := t.api
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return attachFailedMsg{err: err}
		}
		att, err := api.Upload(ctx, filepath.Base(path), data)
		if err != nil {
			return attachFailedMsg{err: err}
		}
		return attachDoneMsg{attachment: att}
	}
}

// consumeAttachment combines a pending attachment with the typed message and
// clears the pending state. Returns the text to send and a label for the
// rendered user turn; without a pending attachment the message passes through
// untouched.
func (t *TUI) consumeAttachment(message string) (sendText, label string) {
	if t.attachment == nil {
		return message, ""
	}
	att := *t.attachment
	t.attachment = nil
	return att.CombinedText(message), attachmentLabel(att)
}

// attachmentLabel renders the attachment indicator for a user turn:
// filename, rendered page count, and the overflow summary.
func attachmentLabel(att upload.Attachment) string {
	label := "📎 " + att.Filename
	if n := len(att.Images); n > 0 {
		label += fmt.Sprintf(" (%d pages", n)
		if more := att.MoreLabel(); more != "" {
			label += ", " + more
		}
		label += ")"
	}
	return label
}

func (t *TUI) handleAttachDone(att upload.Attachment) {
	t.attachment = &att
	t.addMessage(Message{
		Role: roleSystem,
		Text: "(Attached " + attachmentLabel(att) + ", sent with your next message)",
	})
	t.rebuildViewportContent()
	t.viewport.GotoBottom()
}

func (t *TUI) handleAttachFailed(err error) {
	t.attachment = nil
	t.addMessage(Message{Role: roleError, Text: "Attach failed: " + err.Error()})
	t.rebuildViewportContent()
	t.viewport.GotoBottom()
}
