package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/coder/websocket"
	"github.com/fsnotify/fsnotify"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tuilog"
)

// handleSessionLive upgrades to a WebSocket, replays the session's events,
// then tails the session file and streams new events as they are appended.
// Each event is one JSON text message.
// @Summary Follow a session live
// @Description Upgrades to a WebSocket, sends every existing event as a JSON text message, then watches the session file and streams events appended while the assistant is still running.
// @Tags sessions
// @Param source path string true "Source name (claude, codex)"
// @Param projectID path string true "Project ID (percent-encoded)"
// @Param sessionID path string true "Session ID"
// @Success 101 "Switching protocols"
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{source}/{projectID}/{sessionID}/live [get]
func (s *Server) handleSessionLive(w http.ResponseWriter, r *http.Request) {
	source := retrace.Source(pathParam(r, "source"))
	sessionID := pathParam(r, "sessionID")

	store, ok := s.registry.Get(source)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_source", "no source named "+string(source))
		return
	}
	meta, err := store.GetSessionMeta(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session_not_found", "no session "+sessionID)
		return
	}
	if meta.FullPath == "" {
		writeError(w, http.StatusNotFound, "session_not_found", "session has no file to follow")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin policy is the CORS middleware's job
	})
	if err != nil {
		tuilog.Log.Warn("live: websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()

	// The client never sends application messages. CloseRead drains the
	// read side and cancels the context when the peer goes away, so a
	// closed browser tab ends the watch loop instead of lingering until
	// the next write fails.
	ctx := conn.CloseRead(r.Context())

	sent, err := streamEvents(ctx, conn, store, sessionID, 0)
	if err != nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		tuilog.Log.Error("live: cannot create watcher", "error", err)
		conn.Close(websocket.StatusInternalError, "file watcher unavailable")
		return
	}
	defer watcher.Close()

	// Watch the directory, not the file: recorders that write via
	// rename would silently orphan a direct file watch.
	if err := watcher.Add(filepath.Dir(meta.FullPath)); err != nil {
		tuilog.Log.Error("live: cannot watch session dir", "path", meta.FullPath, "error", err)
		conn.Close(websocket.StatusInternalError, "file watcher unavailable")
		return
	}

	base := filepath.Base(meta.FullPath)
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "session stream closed")
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&fsnotify.Write != fsnotify.Write && ev.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			sent, err = streamEvents(ctx, conn, store, sessionID, sent)
			if err != nil {
				return
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			tuilog.Log.Warn("live: watcher error", "error", werr)
		}
	}
}

// streamEvents re-reads the session and writes every event after the first
// skip entries as its own text message. It returns the number of events now
// in the file, which becomes the skip count for the next call. A shrunken
// file (rotation, truncation) simply re-baselines.
func streamEvents(ctx context.Context, conn *websocket.Conn, store retrace.Store, sessionID string, skip int) (int, error) {
	reader, err := store.OpenSession(ctx, sessionID)
	if err != nil {
		tuilog.Log.Warn("live: reopen session failed", "session", sessionID, "error", err)
		return skip, err
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
		if count <= skip {
			continue
		}
		data, err := json.Marshal(event)
		if err != nil {
			tuilog.Log.Warn("live: marshal event failed", "event", event.ID, "error", err)
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return count, err
		}
		wsEventsSentTotal.Inc()
	}
}
