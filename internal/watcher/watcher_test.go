package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitChange(t *testing.T, w *Watcher) bool {
	t.Helper()
	select {
	case <-w.Changed():
		return true
	case <-time.After(3 * time.Second):
		return false
	}
}

func TestWatcher_DetectsWrites(t *testing.T) {
	for _, poll := range []bool{false, true} {
		name := "fsnotify"
		if poll {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "doc.json")
			require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

			w, err := New(path,
				WithDebounce(10*time.Millisecond),
				WithPollInterval(20*time.Millisecond),
				WithForcePoll(poll),
			)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			require.NoError(t, w.Start(ctx))
			if poll {
				assert.True(t, w.IsPolling())
			}

			// Give the poller a distinct modification time to notice.
			time.Sleep(30 * time.Millisecond)
			require.NoError(t, os.WriteFile(path, []byte(`{"changed": true}`), 0o644))
			assert.True(t, waitChange(t, w))
		})
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	w, err := New(path, WithDebounce(100*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	for i := 0; i < 5; i++ {
		w.trigger()
	}
	assert.True(t, waitChange(t, w))

	select {
	case <-w.Changed():
		t.Fatal("burst produced more than one change")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	w, err := New(path, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	if w.IsPolling() {
		t.Skip("fsnotify unavailable")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))
	select {
	case <-w.Changed():
		t.Fatal("change reported for another file")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StartTwice(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "x.json"), WithForcePoll(true))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	assert.ErrorIs(t, w.Start(ctx), ErrAlreadyStarted)
	assert.True(t, filepath.IsAbs(w.Path()))
}
