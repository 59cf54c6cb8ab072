package tui

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/quill-ai/quill/internal/client"
	"github.com/quill-ai/quill/internal/upload"
)

func TestAttachDoneSetsPending(t *testing.T) {
	tui := newTestTUI()

	tui.Update(attachDoneMsg{attachment: upload.Attachment{Filename: "report.pdf", Text: "Q3 report"}})

	if tui.attachment == nil {
		t.Fatal("expected a pending attachment")
	}
	if tui.attachment.Filename != "report.pdf" {
		t.Errorf("unexpected filename %q", tui.attachment.Filename)
	}
	if len(tui.messages) != 1 || tui.messages[0].Role != roleSystem {
		t.Errorf("expected one system message, got %+v", tui.messages)
	}
}

func TestAttachFailedClearsPending(t *testing.T) {
	tui := newTestTUI()
	tui.attachment = &upload.Attachment{Filename: "old.pdf", Text: "stale"}

	tui.Update(attachFailedMsg{err: errors.New("extraction failed")})

	if tui.attachment != nil {
		t.Error("a failed upload must drop the pending attachment")
	}
	if len(tui.messages) != 1 || tui.messages[0].Role != roleError {
		t.Errorf("expected one error message, got %+v", tui.messages)
	}
}

func TestConsumeAttachmentComposesTurn(t *testing.T) {
	tui := newTestTUI()
	tui.attachment = &upload.Attachment{Filename: "report.pdf", Text: "Q3 report"}

	sendText, label := tui.consumeAttachment("summarize")

	if !strings.Contains(sendText, "[Attached document: report.pdf]") {
		t.Errorf("combined text missing document marker: %q", sendText)
	}
	docIdx := strings.Index(sendText, "Q3 report")
	userIdx := strings.Index(sendText, "summarize")
	if docIdx < 0 || userIdx < 0 || docIdx > userIdx {
		t.Errorf("expected document body before instruction, got %q", sendText)
	}
	if label == "" {
		t.Error("expected an attachment label for the rendered user turn")
	}
	if tui.attachment != nil {
		t.Error("attachment must be consumed by the turn")
	}

	// Without a pending attachment the message passes through untouched.
	sendText, label = tui.consumeAttachment("again")
	if sendText != "again" || label != "" {
		t.Errorf("expected pass-through, got %q / %q", sendText, label)
	}
}

func TestSubmitConsumesAttachment(t *testing.T) {
	tui := newTestTUI()
	tui.attachment = &upload.Attachment{Filename: "report.pdf", Text: "Q3 report"}
	tui.input.SetValue("summarize")

	tui.handleSubmit()

	if tui.attachment != nil {
		t.Error("submit must consume the pending attachment")
	}
	if len(tui.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(tui.messages))
	}
	msg := tui.messages[0]
	if msg.Role != roleUser || msg.Text != "summarize" {
		t.Errorf("the transcript shows the typed message, got %+v", msg)
	}
	if !strings.Contains(msg.Attachment, "report.pdf") {
		t.Errorf("expected attachment indicator on the user turn, got %q", msg.Attachment)
	}
	if tui.state != StateStreaming {
		t.Errorf("expected StateStreaming after submit, got %v", tui.state)
	}
}

func TestSlashAttach(t *testing.T) {
	tui := newTestTUI()

	_, cmd := tui.handleSlashCommand(cmdAttach)
	if cmd != nil {
		t.Error("bare /attach must not start an upload")
	}
	if len(tui.messages) != 1 || tui.messages[0].Role != roleError {
		t.Errorf("expected a usage error message, got %+v", tui.messages)
	}

	tui = newTestTUI()
	tui.api = client.New("http://localhost:0")
	_, cmd = tui.handleSlashCommand(cmdAttach + " notes.txt")
	if cmd == nil {
		t.Error("expected an upload command for /attach with a path")
	}
}

func TestAttachUploadFlow(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"upload_id":"u1","filename":"notes.txt","text_content":"meeting notes","images":[],"page_count":0}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("meeting notes"), 0o600); err != nil {
		t.Fatal(err)
	}

	tui := newTestTUI()
	tui.api = client.New(srv.URL)

	msg := tui.startAttach(path)()
	done, ok := msg.(attachDoneMsg)
	if !ok {
		t.Fatalf("expected attachDoneMsg, got %T", msg)
	}
	tui.Update(done)

	if tui.attachment == nil || tui.attachment.Text != "meeting notes" {
		t.Fatalf("expected pending attachment with extracted text, got %+v", tui.attachment)
	}
}

func TestAttachEmptyDocumentClearsPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"empty_document","message":"document contains no extractable content"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "blank.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tui := newTestTUI()
	tui.api = client.New(srv.URL)
	tui.attachment = &upload.Attachment{Filename: "old.pdf", Text: "stale"}

	msg := tui.startAttach(path)()
	failed, ok := msg.(attachFailedMsg)
	if !ok {
		t.Fatalf("expected attachFailedMsg, got %T", msg)
	}
	if !errors.Is(failed.err, upload.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", failed.err)
	}
	tui.Update(failed)

	if tui.attachment != nil {
		t.Error("an empty document must clear the pending attachment")
	}
}
