package index

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tuilog"
)

// DefaultDebounce is how long the watcher waits after the last write to a
// session file before re-indexing it.
const DefaultDebounce = 2 * time.Second

// watchedSession maps a file on disk back to the session it belongs to.
type watchedSession struct {
	sessionID string
	project   retrace.Project
}

// Watcher keeps the catalog current while sessions are still being written.
// It watches every session directory, debounces bursts of writes per file,
// and re-indexes changed sessions incrementally.
type Watcher struct {
	registry *retrace.StoreRegistry
	debounce time.Duration
	fw       *fsnotify.Watcher
	pool     *LazyPool
	done     chan struct{}

	mu       sync.Mutex
	sessions map[string]watchedSession // resolved path -> session

	// ingestMu serializes catalog writes across debounce timers; DuckDB
	// write transactions conflict when interleaved.
	ingestMu sync.Mutex

	// inFlight and dirty serialize re-indexing per session: a change that
	// lands while its session is already being ingested marks it dirty so
	// ingestion runs again right after.
	flightMu sync.Mutex
	inFlight map[string]bool
	dirty    map[string]bool
}

// NewWatcher creates a watcher writing to the catalog at dbPath. A zero or
// negative debounce means DefaultDebounce.
func NewWatcher(dbPath string, registry *retrace.StoreRegistry, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		registry: registry,
		debounce: debounce,
		fw:       fw,
		pool:     NewLazyPool(dbPath, 5*time.Second),
		done:     make(chan struct{}),
		sessions: make(map[string]watchedSession),
		inFlight: make(map[string]bool),
		dirty:    make(map[string]bool),
	}, nil
}

// Start adds every project's session directories to the watch set and
// begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	projects, err := w.registry.ListAllProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if err := w.watchProject(ctx, p); err != nil {
			tuilog.Log.Warn("watch: cannot watch project", "project", p.Name, "error", err)
		}
	}
	go w.loop(ctx)
	return nil
}

// Stop shuts the watcher down and closes any open catalog connection.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fw.Close()
	if poolErr := w.pool.Close(); poolErr != nil {
		err = errors.Join(err, poolErr)
	}
	return err
}

func (w *Watcher) watchProject(ctx context.Context, p retrace.Project) error {
	store, ok := w.registry.Get(p.Source)
	if !ok {
		return nil
	}
	sessions, err := store.ListSessions(ctx, p.ID)
	if err != nil {
		return err
	}

	watched := make(map[string]bool)
	entries := make(map[string]watchedSession, len(sessions))
	for _, s := range sessions {
		// Resolve symlinks so events, which report physical paths, can be
		// matched back to the session.
		realPath, err := filepath.EvalSymlinks(s.FullPath)
		if err != nil {
			realPath = s.FullPath
		}
		dir := filepath.Dir(realPath)
		if hasExcludedDirComponent(dir, []string{".retrace", ".git"}) {
			continue
		}
		if !watched[dir] {
			if err := w.fw.Add(dir); err != nil {
				tuilog.Log.Warn("watch: cannot watch directory", "dir", dir, "error", err)
			} else {
				watched[dir] = true
			}
		}
		entries[realPath] = watchedSession{sessionID: s.ID, project: p}
	}

	w.mu.Lock()
	for path, entry := range entries {
		w.sessions[path] = entry
	}
	w.mu.Unlock()
	return nil
}

// hasExcludedDirComponent reports whether any path component equals one of
// the excluded names. Matching whole components keeps paths like
// "my.git.project" watchable.
func hasExcludedDirComponent(path string, excluded []string) bool {
	clean := filepath.Clean(path)
	for {
		base := filepath.Base(clean)
		for _, ex := range excluded {
			if base == ex {
				return true
			}
		}
		parent := filepath.Dir(clean)
		if parent == clean {
			return false
		}
		clean = parent
	}
}

func (w *Watcher) loop(ctx context.Context) {
	// One debounce timer per file so rapid appends collapse into a single
	// re-index.
	timers := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if timer, ok := timers[event.Name]; ok {
					timer.Stop()
				}
				name := event.Name
				timers[name] = time.AfterFunc(w.debounce, func() {
					w.handleChange(ctx, name)
				})
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			tuilog.Log.Warn("watch: fsnotify error", "error", err)

		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleChange(ctx context.Context, path string) {
	// A timer may fire after Stop; do not reopen the catalog then.
	select {
	case <-w.done:
		return
	default:
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		realPath = path
	}

	entry, ok := w.lookupSession(ctx, realPath)
	if !ok {
		tuilog.Log.Warn("watch: change for unknown session file", "path", realPath)
		return
	}

	w.flightMu.Lock()
	if w.inFlight[realPath] {
		w.dirty[realPath] = true
		w.flightMu.Unlock()
		return
	}
	w.inFlight[realPath] = true
	w.flightMu.Unlock()

	w.reindex(ctx, realPath, entry)
}

// lookupSession resolves a changed file to its session, discovering
// sessions that appeared after Start.
func (w *Watcher) lookupSession(ctx context.Context, realPath string) (watchedSession, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry, ok := w.sessions[realPath]; ok {
		return entry, true
	}

	tuilog.Log.Info("watch: new session file, discovering", "path", realPath)
	entry, ok := w.discover(ctx, realPath)
	if ok {
		w.sessions[realPath] = entry
	}
	return entry, ok
}

// discover maps an unknown file to its session by re-listing projects.
// Session files do not live under the project's working directory, so every
// project has to be checked.
func (w *Watcher) discover(ctx context.Context, path string) (watchedSession, bool) {
	projects, err := w.registry.ListAllProjects(ctx)
	if err != nil {
		return watchedSession{}, false
	}
	for _, p := range projects {
		store, ok := w.registry.Get(p.Source)
		if !ok {
			continue
		}
		sessions, err := store.ListSessions(ctx, p.ID)
		if err != nil {
			continue
		}
		for _, s := range sessions {
			realPath, err := filepath.EvalSymlinks(s.FullPath)
			if err != nil {
				realPath = s.FullPath
			}
			if realPath == path {
				return watchedSession{sessionID: s.ID, project: p}, true
			}
		}
	}
	return watchedSession{}, false
}

// reindex ingests the session, then runs again if the file changed while
// the ingestion was in flight.
func (w *Watcher) reindex(ctx context.Context, realPath string, entry watchedSession) {
	defer func() {
		w.flightMu.Lock()
		delete(w.inFlight, realPath)
		w.flightMu.Unlock()
	}()

	for {
		tuilog.Log.Info("watch: re-indexing session", "session", entry.sessionID, "path", realPath)

		if err := w.syncOnce(ctx, entry); err != nil {
			tuilog.Log.Error("watch: re-index failed", "session", entry.sessionID, "error", err)
		}

		w.flightMu.Lock()
		if !w.dirty[realPath] {
			w.flightMu.Unlock()
			return
		}
		delete(w.dirty, realPath)
		w.flightMu.Unlock()
	}
}

func (w *Watcher) syncOnce(ctx context.Context, entry watchedSession) error {
	w.ingestMu.Lock()
	defer w.ingestMu.Unlock()

	db, err := w.pool.Acquire()
	if err != nil {
		return err
	}
	defer w.pool.Release()

	return NewScanner(db, w.registry).SyncSession(ctx, entry.project, entry.sessionID)
}
