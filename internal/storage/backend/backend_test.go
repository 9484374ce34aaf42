package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim48-robot/disgitbot/internal/config"
	"github.com/tim48-robot/disgitbot/internal/storage"
)

func TestOpen(t *testing.T) {
	docs, err := Open(&config.Config{StorageType: "memory"})
	require.NoError(t, err)
	require.NoError(t, docs.Set(context.Background(), storage.GlobalScope(), "c", "id", []byte(`{}`)))

	docs, err = Open(&config.Config{StorageType: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "bot.db")})
	require.NoError(t, err)
	assert.NoError(t, docs.Close())

	_, err = Open(&config.Config{StorageType: "firestore"})
	assert.Error(t, err)
}
