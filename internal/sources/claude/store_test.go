package claude

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
)

const fixtureSession = `{"type":"user","uuid":"u1","sessionId":"s1","gitBranch":"main","cwd":"/srv/retrace/fixtures/api","timestamp":"2026-03-01T10:00:00Z","message":{"role":"user","content":"add retry logic"}}
{"type":"assistant","uuid":"a1","timestamp":"2026-03-01T10:00:05Z","message":{"role":"assistant","model":"claude-sonnet-4-5","usage":{"input_tokens":12,"output_tokens":40},"content":[{"type":"thinking","thinking":"consider backoff"},{"type":"text","text":"Adding retries."},{"type":"tool_use","id":"tu1","name":"Edit","input":{"file_path":"/srv/retrace/fixtures/api/client.go"}}]}}
{"type":"user","uuid":"u2","timestamp":"2026-03-01T10:00:09Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"ok"}]}}
`

// newStoreFixture builds a base directory with one project holding one
// session, and returns the store reading it.
func newStoreFixture(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	projectDir := filepath.Join(base, "projects", "-srv-retrace-fixtures-api")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(projectDir, "s1.jsonl")
	if err := os.WriteFile(path, []byte(fixtureSession), 0o644); err != nil {
		t.Fatalf("writing session: %v", err)
	}
	return NewStore(base), path
}

func TestStore_Source(t *testing.T) {
	s := NewStore(t.TempDir())
	if s.Source() != retrace.SourceClaude {
		t.Errorf("Source() = %v, want claude", s.Source())
	}
}

func TestStore_ListProjects(t *testing.T) {
	s, _ := newStoreFixture(t)

	projects, err := s.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(projects))
	}

	p := projects[0]
	if p.ID != "-srv-retrace-fixtures-api" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.Name != "api" {
		t.Errorf("Name = %q, want api", p.Name)
	}
	if p.Path != filepath.FromSlash("/srv/retrace/fixtures/api") {
		t.Errorf("Path = %q", p.Path)
	}
	if p.Source != retrace.SourceClaude {
		t.Errorf("Source = %v", p.Source)
	}
	if p.SessionCount != 1 {
		t.Errorf("SessionCount = %d, want 1", p.SessionCount)
	}
}

func TestStore_ListProjects_Empty(t *testing.T) {
	s := NewStore(t.TempDir())
	projects, err := s.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("got %d projects, want 0", len(projects))
	}
}

func TestStore_GetProject(t *testing.T) {
	s, _ := newStoreFixture(t)
	ctx := context.Background()

	byID, err := s.GetProject(ctx, "-srv-retrace-fixtures-api")
	if err != nil {
		t.Fatalf("GetProject(id) error = %v", err)
	}
	byPath, err := s.GetProject(ctx, byID.Path)
	if err != nil {
		t.Fatalf("GetProject(path) error = %v", err)
	}
	if byID.ID != byPath.ID {
		t.Errorf("ID lookup and path lookup disagree: %q vs %q", byID.ID, byPath.ID)
	}

	if _, err := s.GetProject(ctx, "no-such-project"); !errors.Is(err, retrace.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestStore_ListSessions(t *testing.T) {
	s, path := newStoreFixture(t)

	sessions, err := s.ListSessions(context.Background(), "-srv-retrace-fixtures-api")
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}

	m := sessions[0]
	if m.ID != "s1" {
		t.Errorf("ID = %q, want s1", m.ID)
	}
	if m.FullPath != path {
		t.Errorf("FullPath = %q, want %q", m.FullPath, path)
	}
	if m.FirstPrompt != "add retry logic" {
		t.Errorf("FirstPrompt = %q (backfill should read the file head)", m.FirstPrompt)
	}
	if m.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", m.Model)
	}
	if m.Source != retrace.SourceClaude {
		t.Errorf("Source = %v", m.Source)
	}
	if m.ProjectPath != filepath.FromSlash("/srv/retrace/fixtures/api") {
		t.Errorf("ProjectPath = %q", m.ProjectPath)
	}
}

func TestStore_GetSessionMeta(t *testing.T) {
	s, path := newStoreFixture(t)
	ctx := context.Background()

	byID, err := s.GetSessionMeta(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionMeta(id) error = %v", err)
	}
	if byID.FullPath != path {
		t.Errorf("FullPath = %q, want %q", byID.FullPath, path)
	}

	byPath, err := s.GetSessionMeta(ctx, path)
	if err != nil {
		t.Fatalf("GetSessionMeta(path) error = %v", err)
	}
	if byPath.ID != "s1" {
		t.Errorf("ID = %q, want s1", byPath.ID)
	}
	if byPath.FirstPrompt != "add retry logic" {
		t.Errorf("FirstPrompt = %q", byPath.FirstPrompt)
	}

	if _, err := s.GetSessionMeta(ctx, "missing"); !errors.Is(err, retrace.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_GetSessionMeta_RejectsOutsidePath(t *testing.T) {
	s, _ := newStoreFixture(t)

	outside := filepath.Join(t.TempDir(), "elsewhere.jsonl")
	if err := os.WriteFile(outside, []byte(fixtureSession), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	if _, err := s.GetSessionMeta(context.Background(), outside); err == nil {
		t.Error("expected error for path outside the store base")
	}
}

func TestStore_LoadSession(t *testing.T) {
	s, _ := newStoreFixture(t)

	session, err := s.LoadSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}

	wantIDs := []string{"u1", "a1:t0", "a1", "a1:tu1", "u2:tu1"}
	if len(session.Events) != len(wantIDs) {
		t.Fatalf("got %d events, want %d", len(session.Events), len(wantIDs))
	}
	for i, want := range wantIDs {
		if session.Events[i].ID != want {
			t.Errorf("Events[%d].ID = %q, want %q", i, session.Events[i].ID, want)
		}
	}

	if session.Meta.EventCount != len(wantIDs) {
		t.Errorf("EventCount = %d, want %d", session.Meta.EventCount, len(wantIDs))
	}
	if session.Meta.GitBranch != "main" {
		t.Errorf("GitBranch = %q, want main", session.Meta.GitBranch)
	}
	if session.Meta.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", session.Meta.Model)
	}
}

func TestStore_OpenSession(t *testing.T) {
	s, _ := newStoreFixture(t)

	r, err := s.OpenSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	defer r.Close()

	if r.Metadata().ID != "s1" {
		t.Errorf("Metadata().ID = %q, want s1", r.Metadata().ID)
	}

	wantKinds := []retrace.EventKind{
		retrace.KindUser,
		retrace.KindThinking,
		retrace.KindAssistant,
		retrace.KindToolUse,
		retrace.KindToolResult,
	}
	for i, want := range wantKinds {
		ev, err := r.ReadNext()
		if err != nil {
			t.Fatalf("ReadNext()[%d] error = %v", i, err)
		}
		if ev.Kind != want {
			t.Errorf("event %d Kind = %v, want %v", i, ev.Kind, want)
		}
	}
	if _, err := r.ReadNext(); err != io.EOF {
		t.Errorf("expected io.EOF after last event, got %v", err)
	}
}

func TestStore_CacheServesSecondListing(t *testing.T) {
	s, _ := newStoreFixture(t)
	ctx := context.Background()

	first, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}

	// Adding a session file after the first listing must not change the
	// cached result until the cache is reset.
	projectDir := filepath.Join(s.BasePath(), "projects", "-srv-retrace-fixtures-api")
	if err := os.WriteFile(filepath.Join(projectDir, "s2.jsonl"), []byte(fixtureSession), 0o644); err != nil {
		t.Fatalf("writing session: %v", err)
	}

	cached, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if cached[0].SessionCount != first[0].SessionCount {
		t.Errorf("cached SessionCount changed: %d vs %d", cached[0].SessionCount, first[0].SessionCount)
	}

	s.ResetCache()
	fresh, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if fresh[0].SessionCount != 2 {
		t.Errorf("fresh SessionCount = %d, want 2", fresh[0].SessionCount)
	}
}

func TestStore_WatchConfig(t *testing.T) {
	s := NewStore(t.TempDir())
	wc := s.WatchConfig()
	if len(wc.IncludeDirs) != 1 || wc.IncludeDirs[0] != "projects" {
		t.Errorf("IncludeDirs = %v", wc.IncludeDirs)
	}
	if wc.MaxDepth == 0 {
		t.Error("MaxDepth not bounded")
	}
}

func TestStore_BasePath(t *testing.T) {
	base := t.TempDir()
	if got := NewStore(base).BasePath(); got != base {
		t.Errorf("BasePath() = %q, want %q", got, base)
	}
}
