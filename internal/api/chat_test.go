package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/event"
	"github.com/quill-ai/quill/internal/log"
	"github.com/quill-ai/quill/internal/session"
	"github.com/quill-ai/quill/internal/testutil"
)

func newChatServer(t *testing.T, factory agent.Factory) (*Server, *session.MemoryStore) {
	t.Helper()

	store := session.NewMemoryStore()
	srv, err := NewServer(ServerConfig{
		Logger:       log.NewNop(),
		Store:        store,
		Factory:      factory,
		DefaultModel: "test-model",
		TurnTimeout:  5 * time.Second,
		RateBurst:    1000,
	})
	require.NoError(t, err)
	return srv, store
}

func postChat(t *testing.T, srv *Server, body ChatRequest) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatStreamsEnvelopes(t *testing.T) {
	rt := &testutil.ScriptedRuntime{
		Callbacks: []agent.Callback{
			{Kind: agent.CallbackModelChunk, Payload: "The answer"},
			{Kind: agent.CallbackToolStart, Tool: "web_search"},
			{Kind: agent.CallbackToolEnd, Tool: "web_search"},
			{Kind: agent.CallbackModelChunk, Payload: " is 42."},
		},
	}
	factory := &testutil.ScriptedFactory{Runtime: rt}
	srv, store := newChatServer(t, factory.Factory())

	rec := postChat(t, srv, ChatRequest{Message: "what is the answer?"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	envelopes := testutil.ParseEnvelopes(t, rec.Body.String())
	require.Len(t, envelopes, 5)

	assert.Equal(t, event.Content("The answer"), envelopes[0])
	assert.Equal(t, event.ToolStart("web_search"), envelopes[1])
	assert.Equal(t, event.ToolEnd("web_search"), envelopes[2])
	assert.Equal(t, event.Content(" is 42."), envelopes[3])

	done := envelopes[4]
	assert.Equal(t, event.KindDone, done.Kind)
	require.NotEmpty(t, done.ConversationID)

	// History holds the user turn and the fully accumulated assistant turn.
	conv, err := store.Get(context.Background(), done.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Turns, 2)
	assert.Equal(t, session.RoleUser, conv.Turns[0].Role)
	assert.Equal(t, "what is the answer?", conv.Turns[0].Text)
	assert.Equal(t, session.RoleAssistant, conv.Turns[1].Role)
	assert.Equal(t, "The answer is 42.", conv.Turns[1].Text)
}

func TestChatContinuesConversation(t *testing.T) {
	rt := &testutil.ScriptedRuntime{Callbacks: testutil.TextCallbacks("first")}
	factory := &testutil.ScriptedFactory{Runtime: rt}
	srv, store := newChatServer(t, factory.Factory())

	rec := postChat(t, srv, ChatRequest{Message: "hello"})
	envelopes := testutil.ParseEnvelopes(t, rec.Body.String())
	done := testutil.FindEnvelope(envelopes, event.KindDone)
	require.NotNil(t, done)
	id := done.ConversationID

	rt.Callbacks = testutil.TextCallbacks("second")
	rec = postChat(t, srv, ChatRequest{Message: "again", ConversationID: id})
	envelopes = testutil.ParseEnvelopes(t, rec.Body.String())
	done = testutil.FindEnvelope(envelopes, event.KindDone)
	require.NotNil(t, done)
	assert.Equal(t, id, done.ConversationID)

	conv, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, conv.Turns, 4)

	// The second run saw the first exchange plus its own user turn.
	require.Len(t, rt.History, 3)
	assert.Equal(t, "again", rt.History[2].Text)
}

func TestChatRuntimeError(t *testing.T) {
	rt := &testutil.ScriptedRuntime{
		Callbacks: testutil.TextCallbacks("partial"),
		Err:       assert.AnError,
	}
	factory := &testutil.ScriptedFactory{Runtime: rt}
	srv, store := newChatServer(t, factory.Factory())

	rec := postChat(t, srv, ChatRequest{Message: "boom"})
	envelopes := testutil.ParseEnvelopes(t, rec.Body.String())

	// Partial content, then exactly one terminal, an error.
	require.Len(t, envelopes, 2)
	assert.Equal(t, event.KindContent, envelopes[0].Kind)
	assert.Equal(t, event.KindError, envelopes[1].Kind)
	assert.NotEmpty(t, envelopes[1].Error)

	// No assistant turn on a failed run; the session stays usable.
	ids := store.IDs()
	require.Len(t, ids, 1)
	conv, err := store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, session.RoleUser, conv.Turns[0].Role)
}

func TestChatFactoryError(t *testing.T) {
	factory := &testutil.ScriptedFactory{Err: assert.AnError}
	srv, _ := newChatServer(t, factory.Factory())

	rec := postChat(t, srv, ChatRequest{Message: "hello"})
	envelopes := testutil.ParseEnvelopes(t, rec.Body.String())

	require.Len(t, envelopes, 1)
	assert.Equal(t, event.KindError, envelopes[0].Kind)
}

func TestChatUnrecognizedPayloadFailsClosed(t *testing.T) {
	rt := &testutil.ScriptedRuntime{
		Callbacks: []agent.Callback{
			{Kind: agent.CallbackModelChunk, Payload: 42},
		},
	}
	factory := &testutil.ScriptedFactory{Runtime: rt}
	srv, _ := newChatServer(t, factory.Factory())

	rec := postChat(t, srv, ChatRequest{Message: "hello"})
	envelopes := testutil.ParseEnvelopes(t, rec.Body.String())

	require.Len(t, envelopes, 1)
	assert.Equal(t, event.KindError, envelopes[0].Kind)
	assert.Contains(t, envelopes[0].Error, "unrecognized format")
}

func TestChatValidation(t *testing.T) {
	factory := &testutil.ScriptedFactory{Runtime: &testutil.ScriptedRuntime{}}
	srv, _ := newChatServer(t, factory.Factory())

	t.Run("missing message", func(t *testing.T) {
		rec := postChat(t, srv, ChatRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChatPassesModelAndSearchFlag(t *testing.T) {
	rt := &testutil.ScriptedRuntime{Callbacks: testutil.TextCallbacks("ok")}
	factory := &testutil.ScriptedFactory{Runtime: rt}
	srv, _ := newChatServer(t, factory.Factory())

	postChat(t, srv, ChatRequest{Message: "hi", ModelID: "custom-model", WebSearchEnabled: true})
	assert.Equal(t, "custom-model", factory.ModelID)
	assert.True(t, factory.WebSearch)

	postChat(t, srv, ChatRequest{Message: "hi"})
	assert.Equal(t, "test-model", factory.ModelID)
	assert.False(t, factory.WebSearch)
}
