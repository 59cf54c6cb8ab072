package agent

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-ai/quill/internal/session"
)

func TestHistoryMessages(t *testing.T) {
	history := []session.Turn{
		{Role: session.RoleUser, Text: "hello"},
		{Role: session.RoleAssistant, Text: "hi there"},
		{Role: session.RoleUser, Text: "what is 2+2?"},
	}

	messages := historyMessages(history)
	require.Len(t, messages, 3)

	assert.Equal(t, ai.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Text())
	assert.Equal(t, ai.RoleModel, messages[1].Role)
	assert.Equal(t, "hi there", messages[1].Text())
	assert.Equal(t, ai.RoleUser, messages[2].Role)
}

func TestChunkBlocks(t *testing.T) {
	t.Run("nil chunk", func(t *testing.T) {
		assert.Nil(t, chunkBlocks(nil))
	})

	t.Run("text parts become text blocks", func(t *testing.T) {
		chunk := &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart("The answer"), ai.NewTextPart(" is 42.")},
		}

		blocks := chunkBlocks(chunk)
		require.Len(t, blocks, 2)
		assert.Equal(t, Block{Type: "text", Text: "The answer"}, blocks[0])
		assert.Equal(t, Block{Type: "text", Text: " is 42."}, blocks[1])
	})

	t.Run("non-text parts keep their kind and carry no text", func(t *testing.T) {
		chunk := &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewMediaPart("image/png", "data:image/png;base64,AAAA")},
		}

		blocks := chunkBlocks(chunk)
		require.Len(t, blocks, 1)
		assert.Empty(t, blocks[0].Text)
		assert.NotEqual(t, "text", blocks[0].Type)
	})
}
