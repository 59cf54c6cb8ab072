package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps conversations in process memory. Created on demand, no
// eviction; state is lost on process restart, which is why clients must
// tolerate silent history loss on a recreated id.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*Conversation)}
}

var _ Store = (*MemoryStore)(nil)

// StartTurn implements Store.
func (s *MemoryStore) StartTurn(_ context.Context, id, modelID, userText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	c, ok := s.conversations[id]
	if !ok {
		// Unknown ids (e.g. after a restart) are recreated empty under the
		// same id — availability over strict continuity.
		c = &Conversation{ID: id, CreatedAt: now}
		s.conversations[id] = c
	}

	c.ModelID = modelID
	c.Turns = append(c.Turns, Turn{Role: RoleUser, Text: userText})
	c.UpdatedAt = now
	return id, nil
}

// AppendAssistantTurn implements Store.
func (s *MemoryStore) AppendAssistantTurn(_ context.Context, id, finalText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}

	c.Turns = append(c.Turns, Turn{Role: RoleAssistant, Text: finalText})
	c.UpdatedAt = time.Now()
	return nil
}

// Get implements Store. The returned conversation is a copy; mutating it
// does not affect store state.
func (s *MemoryStore) Get(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	out := *c
	out.Turns = make([]Turn, len(c.Turns))
	copy(out.Turns, c.Turns)
	return &out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Len returns the number of live conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// IDs returns the ids of all live conversations, in no particular order.
func (s *MemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	return ids
}
