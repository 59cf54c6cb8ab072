// Package session holds per-conversation state for the quill server: the
// ordered turn history and the model selected for the current turn.
//
// The store is an explicit abstraction injected into the request path, so the
// in-memory implementation (process lifetime, the default) can be swapped for
// the sqlite-backed one without touching protocol logic.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested conversation does not exist.
// StartTurn never returns it — unknown ids are recreated empty there.
var ErrNotFound = errors.New("conversation not found")

// Role identifies who produced a turn.
type Role string

// Turn roles. History is provider-agnostic plain text, so a conversation can
// switch models between turns without translation.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a conversation's append-only history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Conversation is the server-held state for one conversation.
type Conversation struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"` // model for the current turn
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the conversation store abstraction.
//
// Implementations must serialize concurrent operations on the same
// conversation: two in-flight turns for one id may interleave, but each
// append must be atomic (last-writer-appends-last).
type Store interface {
	// StartTurn appends the user turn and records the model for this turn.
	// An empty id allocates a new conversation; an unknown id is recreated
	// empty under that same id rather than rejected. Returns the
	// (possibly newly created) conversation id.
	StartTurn(ctx context.Context, id, modelID, userText string) (string, error)

	// AppendAssistantTurn appends the fully accumulated assistant text.
	// Called exactly once per turn, after the terminal envelope — never
	// with partial text.
	AppendAssistantTurn(ctx context.Context, id, finalText string) error

	// Get returns the conversation, or ErrNotFound.
	Get(ctx context.Context, id string) (*Conversation, error)

	// Delete removes the conversation. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error

	// Close releases store resources.
	Close() error
}
