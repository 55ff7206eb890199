package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tuilog"
)

// sourcesLoadedMsg reports that source discovery finished and the shell's
// registry is populated.
type sourcesLoadedMsg struct {
	err error
}

// sessionLoadedMsg carries a fully loaded session into the timeline page.
type sessionLoadedMsg struct {
	session *retrace.Session
	err     error
}

// sessionChangedMsg reports that the watched session file changed on disk
// while follow mode is on.
type sessionChangedMsg struct {
	path string
}

// followStoppedMsg reports that a session watcher shut down. It carries the
// watcher so a page can tell a stale stop from its current one.
type followStoppedMsg struct {
	w *sessionWatcher
}

// timelineTickMsg delivers a deferred timeline engine action back to the
// page after its delay.
type timelineTickMsg struct {
	gen int
}

// OpenBookmarkMsg asks the shell to open the bookmarked session and jump to
// the bookmarked event.
type OpenBookmarkMsg struct {
	Bookmark bookmarks.Bookmark
}

// OpenBookmarksPageMsg asks the shell to push the bookmarks page.
type OpenBookmarksPageMsg struct{}

func loadSessionCmd(registry *retrace.StoreRegistry, meta retrace.SessionMeta) tea.Cmd {
	return func() tea.Msg {
		store, ok := registry.Get(meta.Source)
		if !ok {
			tuilog.Log.Error("loadSessionCmd: no store for source", "source", meta.Source)
			return sessionLoadedMsg{err: retrace.ErrSourceNotFound}
		}
		session, err := store.LoadSession(context.Background(), meta.ID)
		if err != nil {
			tuilog.Log.Error("loadSessionCmd: load failed", "session", meta.ID, "error", err)
			return sessionLoadedMsg{err: err}
		}
		tuilog.Log.Info("loadSessionCmd: loaded", "session", meta.ID, "events", len(session.Events))
		return sessionLoadedMsg{session: session}
	}
}
