package backup

import (
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ksdme/cursorkeep/internal/events"
	"github.com/pkg/errors"
)

// Bursts of filesystem events within this window collapse into a
// single signal.
const debounceWindow = time.Second

// Watcher observes a backup folder, non recursively, and signals on
// events.BackupFolderChangedSignal when backup files appear, change or
// disappear. It never touches view state itself.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts observing dir, creating it first if necessary.
func Watch(dir string) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "could not create watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "could not watch %s", dir)
	}

	w := &Watcher{
		dir:     dir,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go w.run()

	slog.Info("watching backup folder", "dir", dir)
	return w, nil
}

// Stop shuts the watcher down and resolves pending waits on the
// signal.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
	events.BackupFolderChangedSignal.CleanUp(w.dir)
}

func (w *Watcher) run() {
	// The timer idles until the first relevant event arms it.
	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}

	var pending string
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !Matches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			slog.Debug("backup folder changed", "path", event.Name, "op", event.Op)
			pending = event.Name
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounceWindow)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("backup folder watch failed", "dir", w.dir, "err", err)

		case <-timer.C:
			events.BackupFolderChangedSignal.Emit(w.dir, pending)

		case <-w.done:
			return
		}
	}
}
