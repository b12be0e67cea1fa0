package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onefile/internal/watcher"
)

func startWatcher(t *testing.T, path string) <-chan struct{} {
	t.Helper()

	w, err := watcher.New(watcher.Config{Path: path, Debounce: 50 * time.Millisecond})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(entry, []byte("package main"), 0644))

	onChange := startWatcher(t, entry)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(entry, []byte(fmt.Sprintf("package main // %d", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(time.Second):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(entry, []byte("package main"), 0644))

	onChange := startWatcher(t, entry)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bundle.go"), []byte("x"), 0644))

	select {
	case <-onChange:
		t.Fatal("notification for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	entry := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(entry, []byte("package main"), 0644))

	w, err := watcher.New(watcher.DefaultConfig(entry))
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_RenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(entry, []byte("package main"), 0644))

	onChange := startWatcher(t, entry)

	tmp := filepath.Join(dir, ".main.go.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("package main // saved"), 0644))
	require.NoError(t, os.Rename(tmp, entry))

	select {
	case <-onChange:
	case <-time.After(time.Second):
		t.Fatal("expected notification after rename")
	}
}
