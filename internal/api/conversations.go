package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/quill-ai/quill/internal/log"
	"github.com/quill-ai/quill/internal/session"
)

// conversationHandler serves conversation retrieval, deletion, and export.
type conversationHandler struct {
	store  session.Store
	logger log.Logger
}

// TurnResponse is one history entry in a conversation response.
type TurnResponse struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ConversationResponse is the GET /conversations/{id} body.
type ConversationResponse struct {
	ID      string         `json:"id"`
	ModelID string         `json:"model_id"`
	Turns   []TurnResponse `json:"turns"`
}

func (h *conversationHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
			return
		}
		h.logger.Error("get conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load conversation", h.logger)
		return
	}

	turns := make([]TurnResponse, 0, len(conv.Turns))
	for _, t := range conv.Turns {
		turns = append(turns, TurnResponse{Role: string(t.Role), Text: t.Text})
	}

	writeJSON(w, http.StatusOK, ConversationResponse{
		ID:      conv.ID,
		ModelID: conv.ModelID,
		Turns:   turns,
	}, h.logger)
}

// delete removes a conversation. Deleting an unknown id succeeds: the end
// state is the same.
func (h *conversationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), id); err != nil && !errors.Is(err, session.ErrNotFound) {
		h.logger.Error("delete conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete conversation", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id}, h.logger)
}

// export renders the conversation as a Markdown download.
func (h *conversationHandler) export(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
			return
		}
		h.logger.Error("export conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load conversation", h.logger)
		return
	}

	body := exportMarkdown(conv)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "conversation-"+conv.ID+".md"))
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Debug("write export body", "error", err)
	}
}

// exportMarkdown renders a conversation transcript as Markdown.
func exportMarkdown(conv *session.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation %s\n\n", conv.ID)
	if conv.ModelID != "" {
		fmt.Fprintf(&b, "Model: %s\n\n", conv.ModelID)
	}
	for _, t := range conv.Turns {
		switch t.Role {
		case session.RoleAssistant:
			b.WriteString("## Assistant\n\n")
		default:
			b.WriteString("## User\n\n")
		}
		b.WriteString(t.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}
