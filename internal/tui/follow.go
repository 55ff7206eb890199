package tui

import (
	"path/filepath"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/retracehq/retrace/internal/tuilog"
)

// followDebounce coalesces the write bursts an active session produces into
// one reload.
const followDebounce = 300 * time.Millisecond

// sessionWatcher tails one session file for follow mode. It watches the
// parent directory, since recorders replace files as often as they append,
// and debounces rapid writes.
type sessionWatcher struct {
	path    string
	fw      *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
	stopped chan struct{}

	stopOnce sync.Once
}

func newSessionWatcher(path string) (*sessionWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &sessionWatcher{
		path:    path,
		fw:      fw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.loop()
	tuilog.Log.Debug("Following session file", "path", path)
	return w, nil
}

// next returns a command that resolves on the next debounced file change.
// The page re-arms it after handling each sessionChangedMsg.
func (w *sessionWatcher) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-w.changes:
			return sessionChangedMsg{path: w.path}
		case <-w.stopped:
			return followStoppedMsg{w: w}
		}
	}
}

// stop shuts the watcher down. Safe to call more than once.
func (w *sessionWatcher) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fw.Close()
	})
}

func (w *sessionWatcher) loop() {
	defer close(w.stopped)

	var mu sync.Mutex
	var timer *time.Timer
	fire := func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&fsnotify.Write != fsnotify.Write &&
				event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(followDebounce, fire)
			mu.Unlock()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			tuilog.Log.Error("Session watcher error", "path", w.path, "error", err)

		case <-w.done:
			return
		}
	}
}
