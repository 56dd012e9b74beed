package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	watched := filepath.Join(dir, "songshelf.songs.json")
	other := filepath.Join(dir, "unrelated.json")

	changes := make(chan struct{}, 8)
	w := New([]string{watched}, func(context.Context) { changes <- struct{}{} }, 20*time.Millisecond, nil)
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	require.NoError(t, os.WriteFile(other, []byte("[]"), 0o644))
	select {
	case <-changes:
		t.Fatal("unwatched file must not trigger a reload")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(watched, []byte("[]"), 0o644))
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}

	tmp := filepath.Join(dir, ".songshelf-1.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("[{}]"), 0o644))
	require.NoError(t, os.Rename(tmp, watched))
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification for a file replaced by rename")
	}
}

func TestWatcherIgnoreWhen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	watched := filepath.Join(dir, "songshelf.users.json")
	ours := []byte(`[]`)

	changes := make(chan struct{}, 8)
	w := New([]string{watched}, func(context.Context) { changes <- struct{}{} }, 20*time.Millisecond, nil).
		IgnoreWhen(func(path string) bool {
			data, err := os.ReadFile(path)
			return err == nil && string(data) == string(ours)
		})
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	require.NoError(t, os.WriteFile(watched, ours, 0o644))
	select {
	case <-changes:
		t.Fatal("ignored content must not trigger a reload")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(watched, []byte(`[{"id":"user_x"}]`), 0o644))
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification for foreign content")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "x.json")}, func(context.Context) {}, 0, nil)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
