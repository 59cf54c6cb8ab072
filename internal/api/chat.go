package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/event"
	"github.com/quill-ai/quill/internal/log"
	"github.com/quill-ai/quill/internal/normalize"
	"github.com/quill-ai/quill/internal/session"
)

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message          string `json:"message"`
	ModelID          string `json:"model_id"`
	ConversationID   string `json:"conversation_id"`
	WebSearchEnabled bool   `json:"web_search_enabled"`
}

const maxChatBody = 1 << 20 // 1MB

// chatHandler runs one streaming turn per POST /chat request.
type chatHandler struct {
	logger       log.Logger
	store        session.Store
	factory      agent.Factory
	defaultModel string
	turnTimeout  time.Duration
	locks        *conversationLocks
}

// send streams a turn as SSE envelopes. Errors after the stream has started
// are delivered as an error envelope, never as an HTTP status.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = h.defaultModel
	}
	if modelID == "" {
		writeError(w, http.StatusBadRequest, "missing_model", "model_id is required", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Once the client goes away every write becomes a no-op: the stream is
	// lost, but the turn still runs to completion so history stays whole.
	clientCtx := r.Context()
	ew := event.NewFlushWriter(w, flusher)
	sink := func(e event.Envelope) error {
		if clientCtx.Err() != nil {
			return nil
		}
		if err := ew.Write(e); err != nil {
			h.logger.Debug("stream write failed", "error", err)
		}
		return nil
	}

	// Turns on the same conversation serialize so concurrent sends cannot
	// interleave their history appends. A fresh conversation has no id to
	// contend on until StartTurn allocates one.
	var unlock func()
	if req.ConversationID != "" {
		unlock = h.locks.lock(req.ConversationID)
	}

	// The run outlives a client disconnect, bounded only by the turn timeout.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(clientCtx), h.turnTimeout)
	defer cancel()

	n := normalize.New(sink, h.logger)

	id, err := h.store.StartTurn(runCtx, req.ConversationID, modelID, req.Message)
	if err != nil {
		if unlock != nil {
			unlock()
		}
		h.logger.Error("start turn", "error", err)
		_ = n.FinishError("failed to start conversation turn")
		return
	}
	if unlock == nil {
		unlock = h.locks.lock(id)
	}
	defer unlock()

	h.logger.Debug("turn started", "conversation_id", id, "model", modelID, "web_search", req.WebSearchEnabled)

	if err := h.runTurn(runCtx, id, modelID, req.WebSearchEnabled, n); err != nil {
		h.logger.Warn("turn failed", "conversation_id", id, "error", err)
		_ = n.FinishError(turnErrorMessage(err))
		return
	}

	// Terminal goes out before history is finalized so the client never
	// waits on storage.
	_ = n.FinishSuccess(id)

	if err := h.store.AppendAssistantTurn(runCtx, id, n.Text()); err != nil {
		h.logger.Error("append assistant turn", "conversation_id", id, "error", err)
	}
}

// runTurn builds the per-turn runtime and drives it over the conversation
// history.
func (h *chatHandler) runTurn(ctx context.Context, id, modelID string, webSearch bool, n *normalize.Normalizer) error {
	rt, err := h.factory(ctx, modelID, webSearch)
	if err != nil {
		return err
	}

	conv, err := h.store.Get(ctx, id)
	if err != nil {
		return err
	}

	return rt.Run(ctx, conv.Turns, n.Handle)
}

// turnErrorMessage maps a turn failure to the client-facing error text.
func turnErrorMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the turn timed out before the model finished"
	case errors.Is(err, normalize.ErrNormalization):
		return "the model returned a response in an unrecognized format"
	default:
		return err.Error()
	}
}

// conversationLocks hands out one mutex per conversation id. Entries are
// dropped when their last holder releases.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*conversationLock)}
}

// lock blocks until the conversation is free and returns the release func.
func (c *conversationLocks) lock(id string) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &conversationLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
