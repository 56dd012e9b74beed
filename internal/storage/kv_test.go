package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the same contract checks against any backend.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "songshelf:missing")
	require.NoError(t, err)
	assert.False(t, ok, "missing key must not exist")

	require.NoError(t, kv.Set(ctx, "songshelf:songs", `[{"id":"song_1"}]`))
	value, ok, err := kv.Get(ctx, "songshelf:songs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"song_1"}]`, value)

	require.NoError(t, kv.Set(ctx, "songshelf:songs", `[]`))
	value, _, err = kv.Get(ctx, "songshelf:songs")
	require.NoError(t, err)
	assert.Equal(t, `[]`, value, "set must overwrite")

	require.NoError(t, kv.Delete(ctx, "songshelf:songs"))
	_, ok, err = kv.Get(ctx, "songshelf:songs")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Delete(ctx, "songshelf:songs"), "deleting a missing key is not an error")
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	exerciseKV(t, kv)

	require.NoError(t, kv.Close())
	_, _, err := kv.Get(context.Background(), "songshelf:users")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileKV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	defer kv.Close()

	exerciseKV(t, kv)

	t.Run("PathFor", func(t *testing.T) {
		assert.Equal(t, filepath.Join(dir, "songshelf.currentUser.json"), kv.PathFor("songshelf:currentUser"))
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, kv.Set(ctx, "songshelf:users", `[]`))

		reopened, err := NewFileKV(dir)
		require.NoError(t, err)
		value, ok, err := reopened.Get(ctx, "songshelf:users")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[]`, value)
	})

	t.Run("WroteLast", func(t *testing.T) {
		ctx := context.Background()
		path := kv.PathFor("songshelf:songs")
		other := kv.PathFor("songshelf:never")

		assert.False(t, kv.WroteLast(other), "untouched file")

		require.NoError(t, kv.Set(ctx, "songshelf:songs", `[{"id":"song_1"}]`))
		assert.True(t, kv.WroteLast(path))

		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"song_2"}]`), 0644))
		assert.False(t, kv.WroteLast(path), "content written by someone else")

		require.NoError(t, kv.Delete(ctx, "songshelf:songs"))
		assert.True(t, kv.WroteLast(path))

		require.NoError(t, os.WriteFile(path, []byte(`[]`), 0644))
		assert.False(t, kv.WroteLast(path), "recreated by someone else")
	})

	t.Run("NoTempFilesLeft", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, entry := range entries {
			assert.NotContains(t, entry.Name(), ".tmp")
		}
	})
}

func TestSQLiteKV(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "songshelf.db")
	kv, err := NewSQLiteKV(dbPath, nil)
	require.NoError(t, err)
	defer kv.Close()

	exerciseKV(t, kv)
	require.NoError(t, kv.Ping(context.Background()))
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("SONGSHELF_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SONGSHELF_TEST_REDIS_ADDR not set")
	}

	kv, err := DialRedis(context.Background(), addr, 15)
	require.NoError(t, err)
	defer kv.Close()

	exerciseKV(t, kv)
}

func TestParseErrorIs(t *testing.T) {
	err := &ParseError{Key: KeySongs, Err: assert.AnError}
	assert.ErrorIs(t, err, ErrStorageParse)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "songs")
}
