package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *Manager {
	t.Helper()

	opts := DefaultOptions()
	opts.Path = filepath.Join(t.TempDir(), "nested", "history.db")

	m, err := NewManager(opts, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Open())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_OpenClose(t *testing.T) {
	m := openTestDB(t)
	assert.True(t, m.IsOpen())
	assert.FileExists(t, m.Path())

	// reopening is a no-op
	require.NoError(t, m.Open())

	require.NoError(t, m.Close())
	assert.False(t, m.IsOpen())
	require.NoError(t, m.Close())

	err := m.Put(BucketMetadata, "k", "v")
	assert.Error(t, err)
}

func TestManager_PutGet(t *testing.T) {
	m := openTestDB(t)

	type item struct {
		Name string `json:"name"`
	}

	require.NoError(t, m.Put(BucketMetadata, "one", item{Name: "replay"}))

	var got item
	require.NoError(t, m.Get(BucketMetadata, "one", &got))
	assert.Equal(t, "replay", got.Name)

	err := m.Get(BucketMetadata, "missing", &got)
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.Put("nope", "k", "v")
	assert.Error(t, err)
}

func TestManager_CountClear(t *testing.T) {
	m := openTestDB(t)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, m.Put(BucketFixes, k, k))
	}

	n, err := m.Count(BucketFixes)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, m.Clear(BucketFixes))
	n, err = m.Count(BucketFixes)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/player")

	got, err := expandHome("~/.sc2fix/history.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/player", ".sc2fix", "history.db"), got)

	got, err = expandHome("/abs/history.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/history.db", got)
}
