package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ksdme/cursorkeep/internal/events"
	"github.com/stretchr/testify/require"
)

func TestWatcherSignalsOnChange(t *testing.T) {
	dir := t.TempDir()

	watcher, err := Watch(dir)
	require.NoError(t, err)
	defer watcher.Stop()

	received := make(chan string, 1)
	go func() {
		path, aborted := events.BackupFolderChangedSignal.Wait(dir)
		if !aborted {
			received <- path
		}
	}()

	// Give the waiter a moment to register before touching the folder.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "cursor_account_watch.csv")
	require.NoError(t, os.WriteFile(path, []byte("variable,value\n"), 0o600))

	select {
	case changed := <-received:
		require.Equal(t, path, changed)
	case <-time.After(3 * time.Second):
		t.Fatal("no signal after changing the backup folder")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	watcher, err := Watch(dir)
	require.NoError(t, err)
	defer watcher.Stop()

	received := make(chan string, 1)
	go func() {
		path, aborted := events.BackupFolderChangedSignal.Wait(dir)
		if !aborted {
			received <- path
		}
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	select {
	case path := <-received:
		t.Fatalf("unexpected signal for %s", path)
	case <-time.After(2 * time.Second):
	}
}

func TestWatchCreatesFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "env_backups")

	watcher, err := Watch(dir)
	require.NoError(t, err)
	watcher.Stop()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
