package storage

import (
	"context"
	"testing"
	"time"

	"songshelf/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	return NewStore(kv, "songshelf", nil), kv
}

func TestStoreCollections(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingCollectionIsEmpty", func(t *testing.T) {
		store, _ := newTestStore(t)

		users, err := store.ReadUsers(ctx)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)

		songs, err := store.ReadSongs(ctx)
		require.NoError(t, err)
		assert.NotNil(t, songs)
		assert.Empty(t, songs)
	})

	t.Run("UnparsableCollectionIsEmpty", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, kv.Set(ctx, store.KeyFor(KeySongs), "{not json"))

		songs, err := store.ReadSongs(ctx)
		assert.ErrorIs(t, err, ErrStorageParse)
		assert.NotNil(t, songs)
		assert.Empty(t, songs)
	})

	t.Run("NullCollectionIsEmpty", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, kv.Set(ctx, store.KeyFor(KeyUsers), "null"))

		users, err := store.ReadUsers(ctx)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})

	t.Run("SongsRoundTrip", func(t *testing.T) {
		store, kv := newTestStore(t)
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		songs := []models.Song{
			models.NewSong("user_a", models.SongInput{Title: "Alpha", Singer: "Bob", Album: "One", Year: 2001, Genre: "Pop", Duration: "3:05"}, now),
			models.NewSong("user_b", models.SongInput{Title: "Beta", Singer: "Ann", Album: "Two", Year: 1999, Genre: "Rock", Duration: "12:40", AudioURL: "https://example.com/b.mp3"}, now),
		}

		require.NoError(t, store.WriteSongs(ctx, songs))
		got, err := store.ReadSongs(ctx)
		require.NoError(t, err)
		assert.Equal(t, songs, got)

		raw, ok, err := kv.Get(ctx, "songshelf:songs")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, raw, `"userId":"user_a"`)
		assert.Contains(t, raw, `"audioUrl":"https://example.com/b.mp3"`)
		assert.NotContains(t, raw, `"coverImage"`, "empty optional links are omitted")
	})

	t.Run("WriteNilWritesEmptyArray", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, store.WriteUsers(ctx, nil))

		raw, _, err := kv.Get(ctx, "songshelf:users")
		require.NoError(t, err)
		assert.Equal(t, "[]", raw)
	})

	t.Run("UsersKeepPassword", func(t *testing.T) {
		store, kv := newTestStore(t)
		creds := []models.Credential{{ID: "user_1", Email: "a@b.co", Username: "abc", Password: "secret1"}}
		require.NoError(t, store.WriteUsers(ctx, creds))

		raw, _, err := kv.Get(ctx, "songshelf:users")
		require.NoError(t, err)
		assert.Contains(t, raw, `"password":"secret1"`)
	})
}

func TestStoreCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Absent", func(t *testing.T) {
		store, _ := newTestStore(t)
		user, err := store.ReadCurrentUser(ctx)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("RoundTripWithoutPassword", func(t *testing.T) {
		store, kv := newTestStore(t)
		want := models.User{ID: "user_1", Email: "a@b.co", Username: "abc", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
		require.NoError(t, store.WriteCurrentUser(ctx, want))

		got, err := store.ReadCurrentUser(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, *got)

		raw, _, err := kv.Get(ctx, "songshelf:currentUser")
		require.NoError(t, err)
		assert.NotContains(t, raw, "password")
	})

	t.Run("Unparsable", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, kv.Set(ctx, "songshelf:currentUser", "[[["))

		user, err := store.ReadCurrentUser(ctx)
		assert.ErrorIs(t, err, ErrStorageParse)
		assert.Nil(t, user)
	})

	t.Run("Clear", func(t *testing.T) {
		store, kv := newTestStore(t)
		require.NoError(t, store.WriteCurrentUser(ctx, models.User{ID: "user_1"}))
		require.NoError(t, store.ClearCurrentUser(ctx))

		_, ok, err := kv.Get(ctx, "songshelf:currentUser")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStoreNamespaces(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	first := NewStore(kv, "first", nil)
	second := NewStore(kv, "second", nil)

	require.NoError(t, first.WriteSongs(ctx, []models.Song{{ID: "song_1"}}))

	songs, err := second.ReadSongs(ctx)
	require.NoError(t, err)
	assert.Empty(t, songs)
	assert.Equal(t, 1, kv.Size())
}
