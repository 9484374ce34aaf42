package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/storage"
)

func setupStorage(t *testing.T) storage.DocumentStore {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)
	global := storage.GlobalScope()

	_, err := s.Get(ctx, global, storage.CollectionServers, "123")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, s.Set(ctx, global, storage.CollectionServers, "123", []byte(`{"github_org":"acme"}`)))
	require.NoError(t, s.Set(ctx, global, storage.CollectionServers, "123", []byte(`{"github_org":"beta"}`)))
	require.NoError(t, s.Set(ctx, global, storage.CollectionServers, "456", []byte(`{"github_org":"gamma"}`)))
	require.NoError(t, s.Set(ctx, storage.OrgScope("acme"), storage.CollectionServers, "789", []byte(`{}`)))

	got, err := s.Get(ctx, global, storage.CollectionServers, "123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"github_org":"beta"}`, string(got))

	docs, err := s.List(ctx, global, storage.CollectionServers)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Contains(t, docs, "456")

	require.NoError(t, s.Delete(ctx, global, storage.CollectionServers, "123"))
	_, err = s.Get(ctx, global, storage.CollectionServers, "123")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSQLiteStorageMigrateIsRepeatable(t *testing.T) {
	s := setupStorage(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
