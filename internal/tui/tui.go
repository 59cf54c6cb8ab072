// Package tui provides the Bubble Tea terminal client for the chat service.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/quill-ai/quill/internal/client"
	"github.com/quill-ai/quill/internal/upload"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput     State = iota // awaiting user input
	StateStreaming              // one turn in flight
)

// Memory bounds to prevent unbounded growth.
const (
	maxMessages = 100
	maxHistory  = 100
)

// Message role constants for display.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	helpLines      = 1
	promptLines    = 1
	minViewport    = 3
)

// Message is one completed transcript message.
type Message struct {
	Role       string
	Text       string
	Badges     []client.Badge // tool badges carried over from the reduced entry
	Attachment string         // document indicator on a user turn
}

// TUI is the Bubble Tea model for the chat terminal interface.
type TUI struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time

	// Completed transcript plus the in-flight reduction.
	messages []Message
	reducer  *client.Reducer

	// Pending document, consumed by the next submitted turn.
	attachment *upload.Attachment

	spinner  spinner.Model
	viewport viewport.Model
	viewBuf  strings.Builder

	help help.Model
	keys keyMap

	// Stream management. Bubble Tea's event loop provides synchronization;
	// a single union channel keeps the select logic flat.
	streamCancel  context.CancelFunc
	streamEventCh <-chan streamEvent

	// Dependencies
	api            *client.Client
	conversationID string
	modelID        string
	webSearch      bool
	ctx            context.Context
	ctxCancel      context.CancelFunc

	width  int
	height int

	styles   Styles
	markdown *markdownRenderer
}

// New creates a TUI model for chat interaction.
//
// ctx must be the same context passed to tea.WithContext() so cancellation
// behaves consistently.
func New(ctx context.Context, api *client.Client, modelID string) (*TUI, error) {
	if api == nil {
		return nil, errors.New("tui.New: client is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{} // keys are routed explicitly in handleKey

	return &TUI{
		api:       api,
		modelID:   modelID,
		ctx:       ctx,
		ctxCancel: cancel,
		input:     ta,
		spinner:   sp,
		viewport:  vp,
		help:      help.New(),
		keys:      newKeyMap(),
		styles:    DefaultStyles(),
		history:   make([]string, 0, maxHistory),
		markdown:  newMarkdownRenderer(80),
		width:     80,
	}, nil
}

// addMessage appends a message and enforces the maxMessages bound.
func (t *TUI) addMessage(msg Message) {
	t.messages = append(t.messages, msg)
	if len(t.messages) > maxMessages {
		t.messages = t.messages[len(t.messages)-maxMessages:]
	}
}

// Init implements tea.Model.
func (t *TUI) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		t.spinner.Tick,
		t.input.Focus(),
	)
}

// Update implements tea.Model.
func (t *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return t.handleKey(msg)

	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height

		inputHeight := t.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		t.viewport.SetWidth(msg.Width)
		t.viewport.SetHeight(vpHeight)
		t.input.SetWidth(msg.Width - 4)
		t.help.SetWidth(msg.Width)
		t.markdown.UpdateWidth(msg.Width)

		t.rebuildViewportContent()
		return t, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		if t.state == StateStreaming {
			t.rebuildViewportContent()
		}
		return t, cmd

	case streamStartedMsg:
		t.streamCancel = msg.cancel
		t.streamEventCh = msg.eventCh
		t.state = StateStreaming
		t.reducer = client.NewReducer()
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, listenForStream(msg.eventCh)

	case streamEnvelopeMsg:
		t.reducer.Apply(msg.envelope)
		if t.reducer.Done() {
			return t.finishTurn()
		}
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, listenForStream(t.streamEventCh)

	case attachDoneMsg:
		t.handleAttachDone(msg.attachment)
		return t, nil

	case attachFailedMsg:
		t.handleAttachFailed(msg.err)
		return t, nil

	case streamClosedMsg:
		// Connection dropped before the terminal envelope: finalize what we
		// have as an incomplete entry.
		if t.reducer != nil && !t.reducer.Done() {
			t.reducer.Abandon()
			if msg.err != nil && t.reducer.Entry().Text == "" {
				t.stopStream()
				t.reducer = nil
				t.addMessage(Message{Role: roleError, Text: streamErrText(msg.err)})
				t.rebuildViewportContent()
				t.viewport.GotoBottom()
				return t, t.input.Focus()
			}
		}
		return t.finishTurn()
	}

	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

// finishTurn moves the reduced entry into the transcript and returns to
// input state.
func (t *TUI) finishTurn() (tea.Model, tea.Cmd) {
	t.stopStream()

	if t.reducer != nil {
		entry := t.reducer.Entry()
		if id := t.reducer.ConversationID(); id != "" {
			t.conversationID = id
		}

		role := roleAssistant
		if entry.Failed {
			role = roleError
		}
		// An aborted turn with nothing reduced leaves no transcript entry.
		if entry.Text != "" || len(entry.Badges) > 0 || entry.Failed {
			t.addMessage(Message{Role: role, Text: entry.Text, Badges: entry.Badges})
		}
		t.reducer = nil
	}

	t.rebuildViewportContent()
	t.viewport.GotoBottom()
	return t, t.input.Focus()
}

func (t *TUI) stopStream() {
	t.state = StateInput
	if t.streamCancel != nil {
		t.streamCancel()
		t.streamCancel = nil
	}
	t.streamEventCh = nil
}

func streamErrText(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "(Canceled)"
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Try a simpler question."
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (t *TUI) View() tea.View {
	t.viewBuf.Reset()

	_, _ = t.viewBuf.WriteString(t.viewport.View())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.styles.Prompt.Render("> "))
	_, _ = t.viewBuf.WriteString(t.input.View())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderStatusBar())

	v := tea.NewView(t.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport content from the
// transcript and the in-flight reduction.
func (t *TUI) rebuildViewportContent() {
	var b strings.Builder

	_, _ = b.WriteString(t.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(t.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	for _, msg := range t.messages {
		t.renderMessage(&b, msg)
	}

	if t.state == StateStreaming && t.reducer != nil {
		entry := t.reducer.Entry()

		_, _ = b.WriteString(t.styles.Assistant.Render("Quill> "))
		if badges := t.renderBadges(entry.Badges); badges != "" {
			_, _ = b.WriteString(badges)
			_, _ = b.WriteString("\n")
		}
		if entry.Text != "" {
			// Full re-render of the cumulative markdown each time: later
			// tokens can invalidate earlier spans (an unterminated code
			// fence, a half-open emphasis).
			_, _ = b.WriteString(t.markdown.Render(entry.Text))
		}
		if entry.Loading {
			_, _ = b.WriteString(t.spinner.View())
			_, _ = b.WriteString(" Thinking...")
		}
		_, _ = b.WriteString("\n\n")
	}

	t.viewport.SetContent(b.String())
}

func (t *TUI) renderMessage(b *strings.Builder, msg Message) {
	switch msg.Role {
	case roleUser:
		_, _ = b.WriteString(t.styles.User.Render("You> "))
		if msg.Attachment != "" {
			_, _ = b.WriteString(t.styles.System.Render(msg.Attachment))
			_, _ = b.WriteString("\n")
		}
		_, _ = b.WriteString(msg.Text)
	case roleAssistant:
		_, _ = b.WriteString(t.styles.Assistant.Render("Quill> "))
		if badges := t.renderBadges(msg.Badges); badges != "" {
			_, _ = b.WriteString(badges)
			_, _ = b.WriteString("\n")
		}
		_, _ = b.WriteString(t.markdown.Render(msg.Text))
	case roleSystem:
		_, _ = b.WriteString(t.styles.System.Render(msg.Text))
	case roleError:
		if badges := t.renderBadges(msg.Badges); badges != "" {
			_, _ = b.WriteString(badges)
			_, _ = b.WriteString("\n")
		}
		_, _ = b.WriteString(t.styles.Error.Render("Error: " + msg.Text))
	}
	_, _ = b.WriteString("\n\n")
}

// renderBadges renders tool badges in creation order.
func (t *TUI) renderBadges(badges []client.Badge) string {
	if len(badges) == 0 {
		return ""
	}

	parts := make([]string, 0, len(badges))
	for _, badge := range badges {
		label := toolDisplayName(badge.Tool)
		if badge.State == client.BadgeComplete {
			parts = append(parts, t.styles.BadgeDone.Render("✓ "+label))
		} else {
			parts = append(parts, t.styles.BadgeActive.Render("⠿ "+label+"..."))
		}
	}
	return strings.Join(parts, "  ")
}

func (t *TUI) renderSeparator() string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	return t.styles.Separator.Render(strings.Repeat("─", width))
}

func (t *TUI) renderStatusBar() string {
	var bindings []key.Binding
	switch t.state {
	case StateInput:
		bindings = []key.Binding{
			t.keys.Submit, t.keys.NewLine, t.keys.History,
			t.keys.Cancel, t.keys.Quit, t.keys.ScrollUp,
		}
	case StateStreaming:
		bindings = []key.Binding{
			t.keys.EscCancel, t.keys.Cancel,
			t.keys.ScrollUp, t.keys.ScrollDown,
		}
	}

	bar := t.help.ShortHelpView(bindings)
	if t.webSearch {
		bar += t.styles.StatusBar.Render("  · web search on")
	}
	if t.attachment != nil {
		bar += t.styles.StatusBar.Render("  · 📎 " + t.attachment.Filename)
	}
	return bar
}
