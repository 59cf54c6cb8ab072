package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-ai/quill/internal/config"
	"github.com/quill-ai/quill/internal/log"
	"github.com/quill-ai/quill/internal/session"
)

func TestProvideStoreMemory(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.StoreMemory}

	store, err := provideStore(cfg, log.NewNop())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &session.MemoryStore{}, store)
}

func TestProvideStoreSQLite(t *testing.T) {
	cfg := &config.Config{
		StoreBackend: config.StoreSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "conversations.db"),
	}

	store, err := provideStore(cfg, log.NewNop())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &session.SQLiteStore{}, store)
}

func TestProvideStoreUnknownBackend(t *testing.T) {
	cfg := &config.Config{StoreBackend: "redis"}

	_, err := provideStore(cfg, log.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidStoreBackend)
}

func TestSetupRejectsNilConfig(t *testing.T) {
	_, err := Setup(t.Context(), nil, log.NewNop())
	assert.ErrorIs(t, err, config.ErrConfigNil)
}
