package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-ai/quill/internal/event"
)

func TestReducerScenario(t *testing.T) {
	r := NewReducer()

	envelopes := []event.Envelope{
		event.ToolStart("search"),
		event.Content("The "),
		event.Content("answer"),
		event.ToolEnd("search"),
		event.Content(" is 42."),
		event.Done("abc"),
	}
	for _, env := range envelopes {
		assert.True(t, r.Apply(env))
	}

	entry := r.Entry()
	assert.Equal(t, "The answer is 42.", entry.Text)
	require.Len(t, entry.Badges, 1)
	assert.Equal(t, Badge{Tool: "search", State: BadgeComplete}, entry.Badges[0])
	assert.False(t, entry.Loading)
	assert.False(t, entry.Failed)
	assert.Equal(t, "abc", r.ConversationID())
	assert.True(t, r.Done())
}

func TestReducerLoading(t *testing.T) {
	r := NewReducer()
	assert.True(t, r.Entry().Loading)

	// Tool activity alone does not clear loading.
	r.Apply(event.ToolStart("search"))
	assert.True(t, r.Entry().Loading)

	r.Apply(event.Content("x"))
	assert.False(t, r.Entry().Loading)
}

func TestReducerBadges(t *testing.T) {
	t.Run("duplicate start is a no-op", func(t *testing.T) {
		r := NewReducer()
		r.Apply(event.ToolStart("search"))
		r.Apply(event.ToolStart("search"))

		require.Len(t, r.Entry().Badges, 1)
		assert.Equal(t, BadgeActive, r.Entry().Badges[0].State)
	})

	t.Run("end without start creates a complete badge", func(t *testing.T) {
		r := NewReducer()
		r.Apply(event.ToolEnd("search"))

		badges := r.Entry().Badges
		require.Len(t, badges, 1)
		assert.Equal(t, Badge{Tool: "search", State: BadgeComplete}, badges[0])
	})

	t.Run("unclosed badge stays active after done", func(t *testing.T) {
		r := NewReducer()
		r.Apply(event.ToolStart("search"))
		r.Apply(event.Done("abc"))

		badges := r.Entry().Badges
		require.Len(t, badges, 1)
		assert.Equal(t, BadgeActive, badges[0].State)
	})

	t.Run("creation order is preserved", func(t *testing.T) {
		r := NewReducer()
		r.Apply(event.ToolStart("search"))
		r.Apply(event.ToolStart("save_artifact"))
		r.Apply(event.ToolEnd("search"))

		badges := r.Entry().Badges
		require.Len(t, badges, 2)
		assert.Equal(t, "search", badges[0].Tool)
		assert.Equal(t, "save_artifact", badges[1].Tool)
	})
}

func TestReducerError(t *testing.T) {
	r := NewReducer()
	r.Apply(event.ToolStart("search"))
	r.Apply(event.Content("partial"))
	r.Apply(event.Errorf("model unavailable"))

	entry := r.Entry()
	assert.Equal(t, "model unavailable", entry.Text)
	assert.True(t, entry.Failed)
	assert.False(t, entry.Loading)
	// Partial tool progress stays visible.
	require.Len(t, entry.Badges, 1)
	assert.Empty(t, r.ConversationID())
}

func TestReducerPostTerminal(t *testing.T) {
	r := NewReducer()
	r.Apply(event.Content("final"))
	require.True(t, r.Apply(event.Done("abc")))

	// Replayed done and trailing envelopes are ignored.
	assert.False(t, r.Apply(event.Done("abc")))
	assert.False(t, r.Apply(event.Content("late")))
	assert.False(t, r.Apply(event.Errorf("late error")))

	entry := r.Entry()
	assert.Equal(t, "final", entry.Text)
	assert.False(t, entry.Failed)
	assert.Equal(t, "abc", r.ConversationID())
}

func TestReducerAbandon(t *testing.T) {
	r := NewReducer()
	r.Apply(event.Content("partial"))
	r.Abandon()

	entry := r.Entry()
	assert.Equal(t, "partial", entry.Text)
	assert.False(t, entry.Loading)
	assert.True(t, r.Done())
	assert.Empty(t, r.ConversationID())
}
