package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/retracehq/retrace/internal/retrace"
)

// tailStore serves a growing event slice, so tests can append while the
// live handler is streaming.
type tailStore struct {
	mu     sync.Mutex
	meta   retrace.SessionMeta
	events []retrace.Event
}

var _ retrace.Store = (*tailStore)(nil)

func (s *tailStore) append(ev retrace.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *tailStore) Source() retrace.Source { return retrace.SourceClaude }
func (s *tailStore) BasePath() string       { return "" }

func (s *tailStore) ListProjects(ctx context.Context) ([]retrace.Project, error) {
	return nil, nil
}

func (s *tailStore) GetProject(ctx context.Context, id string) (*retrace.Project, error) {
	return nil, retrace.ErrProjectNotFound
}

func (s *tailStore) ListSessions(ctx context.Context, projectID string) ([]retrace.SessionMeta, error) {
	return []retrace.SessionMeta{s.meta}, nil
}

func (s *tailStore) GetSessionMeta(ctx context.Context, sessionID string) (*retrace.SessionMeta, error) {
	if sessionID != s.meta.ID {
		return nil, retrace.ErrSessionNotFound
	}
	meta := s.meta
	return &meta, nil
}

func (s *tailStore) LoadSession(ctx context.Context, sessionID string) (*retrace.Session, error) {
	if sessionID != s.meta.ID {
		return nil, retrace.ErrSessionNotFound
	}
	s.mu.Lock()
	events := append([]retrace.Event(nil), s.events...)
	s.mu.Unlock()
	return &retrace.Session{Meta: s.meta, Events: events}, nil
}

func (s *tailStore) OpenSession(ctx context.Context, sessionID string) (retrace.SessionReader, error) {
	if sessionID != s.meta.ID {
		return nil, retrace.ErrSessionNotFound
	}
	s.mu.Lock()
	events := append([]retrace.Event(nil), s.events...)
	s.mu.Unlock()
	return &sliceReader{meta: s.meta, events: events}, nil
}

func newTailStore(t *testing.T) *tailStore {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-live.jsonl")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("seed session file: %v", err)
	}
	return &tailStore{
		meta: retrace.SessionMeta{
			ID:          "sess-live",
			ProjectPath: "/home/u/scanner",
			FullPath:    path,
			Source:      retrace.SourceClaude,
		},
		events: testEvents(),
	}
}

func TestHandleSessionLiveNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/sessions/gemini/proj/sess-1/live", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown source status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/sessions/claude/proj/ghost/live", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d, want 404", rec.Code)
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if resp.Error != "session_not_found" {
		t.Errorf("error = %q, want session_not_found", resp.Error)
	}
}

func dialLive(t *testing.T, ctx context.Context, store retrace.Store) *websocket.Conn {
	t.Helper()
	registry := retrace.NewRegistry()
	registry.Register(store)
	s := NewServer(registry, Config{Quiet: true})

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/claude/proj/sess-live/live"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) retrace.Event {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	var ev retrace.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v (%s)", err, data)
	}
	return ev
}

func TestHandleSessionLiveBackfill(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := newTailStore(t)
	conn := dialLive(t, ctx, store)

	want := testEvents()
	for i := range want {
		ev := readEvent(t, ctx, conn)
		if ev.ID != want[i].ID {
			t.Fatalf("backfill[%d] = %q, want %q", i, ev.ID, want[i].ID)
		}
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestHandleSessionLiveFollow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := newTailStore(t)
	conn := dialLive(t, ctx, store)

	for range testEvents() {
		readEvent(t, ctx, conn)
	}

	store.append(retrace.Event{ID: "e7", Kind: retrace.KindAssistant, Content: "one more thing"})

	// Touch the session file until the watcher picks it up; the first
	// touches can land before the handler has the watch in place.
	got := make(chan retrace.Event, 1)
	go func() {
		var ev retrace.Event
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if json.Unmarshal(data, &ev) == nil {
			got <- ev
		}
	}()

	deadline := time.After(8 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ev := <-got:
			if ev.ID != "e7" {
				t.Fatalf("followed event = %q, want e7", ev.ID)
			}
			conn.Close(websocket.StatusNormalClosure, "done")
			return
		case <-deadline:
			t.Fatal("timed out waiting for appended event")
		case <-tick.C:
			f, err := os.OpenFile(store.meta.FullPath, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				t.Fatalf("touch session file: %v", err)
			}
			f.WriteString("{}\n")
			f.Close()
		}
	}
}
