package codex

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
)

// writeRollout drops a rollout file into the dated layout Codex uses.
func writeRollout(t *testing.T, base, name, jsonl string) string {
	t.Helper()
	dir := filepath.Join(base, "sessions", "2026", "03", "02")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(jsonl), 0o644); err != nil {
		t.Fatalf("writing rollout: %v", err)
	}
	return path
}

func newCodexFixture(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	path := writeRollout(t, base, "rollout-2026-03-02T09-00-00-0196fa2d.jsonl", fixtureRollout)
	return NewStore(base), path
}

func TestStore_SourceAndBasePath(t *testing.T) {
	base := t.TempDir()
	s := NewStore(base)
	if s.Source() != retrace.SourceCodex {
		t.Errorf("Source() = %v, want codex", s.Source())
	}
	if s.BasePath() != base {
		t.Errorf("BasePath() = %q, want %q", s.BasePath(), base)
	}
}

func TestReadSessionMeta(t *testing.T) {
	s, path := newCodexFixture(t)

	meta, err := s.readSessionMeta(path)
	if err != nil {
		t.Fatalf("readSessionMeta() error = %v", err)
	}

	if meta.ID != "0196fa2d" {
		t.Errorf("ID = %q, want the session_meta id", meta.ID)
	}
	if meta.ProjectPath != "/srv/retrace/fixtures/api" {
		t.Errorf("ProjectPath = %q", meta.ProjectPath)
	}
	if meta.Model != "o4-mini" {
		t.Errorf("Model = %q", meta.Model)
	}
	if meta.GitBranch != "main" {
		t.Errorf("GitBranch = %q", meta.GitBranch)
	}
	if meta.FirstPrompt != "profile the slow endpoint" {
		t.Errorf("FirstPrompt = %q", meta.FirstPrompt)
	}
	if meta.EventCount != 5 {
		t.Errorf("EventCount = %d, want 5", meta.EventCount)
	}
	if meta.Source != retrace.SourceCodex {
		t.Errorf("Source = %v", meta.Source)
	}
}

func TestReadSessionMeta_NoSessionMetaLine(t *testing.T) {
	base := t.TempDir()
	jsonl := `{"timestamp":"2026-03-02T09:00:01Z","type":"event_msg","payload":{"type":"user_message","message":"hi"}}
`
	path := writeRollout(t, base, "rollout-bare.jsonl", jsonl)

	meta, err := NewStore(base).readSessionMeta(path)
	if err != nil {
		t.Fatalf("readSessionMeta() error = %v", err)
	}
	if meta.ID != "rollout-bare" {
		t.Errorf("ID = %q, want filename stem", meta.ID)
	}
	if meta.ProjectPath != "unknown" {
		t.Errorf("ProjectPath = %q, want unknown", meta.ProjectPath)
	}
}

func TestStore_ListProjects(t *testing.T) {
	s, _ := newCodexFixture(t)

	projects, err := s.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(projects))
	}

	p := projects[0]
	if p.ID != "/srv/retrace/fixtures/api" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.Name != "api" {
		t.Errorf("Name = %q, want api", p.Name)
	}
	if p.Source != retrace.SourceCodex {
		t.Errorf("Source = %v", p.Source)
	}
	if p.SessionCount != 1 {
		t.Errorf("SessionCount = %d, want 1", p.SessionCount)
	}
}

func TestStore_ListProjects_GroupsByCWD(t *testing.T) {
	base := t.TempDir()
	writeRollout(t, base, "a.jsonl", fixtureRollout)
	writeRollout(t, base, "b.jsonl", fixtureRollout)
	other := `{"timestamp":"2026-03-02T10:00:00Z","type":"event_msg","payload":{"type":"user_message","message":"hi"}}
`
	writeRollout(t, base, "c.jsonl", other)

	projects, err := NewStore(base).ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2 (cwd group + unknown)", len(projects))
	}

	counts := make(map[string]int)
	for _, p := range projects {
		counts[p.ID] = p.SessionCount
	}
	if counts["/srv/retrace/fixtures/api"] != 2 {
		t.Errorf("cwd group SessionCount = %d, want 2", counts["/srv/retrace/fixtures/api"])
	}
	if counts["unknown"] != 1 {
		t.Errorf("unknown SessionCount = %d, want 1", counts["unknown"])
	}
}

func TestStore_ListSessions(t *testing.T) {
	s, path := newCodexFixture(t)

	sessions, err := s.ListSessions(context.Background(), "/srv/retrace/fixtures/api")
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].ID != "0196fa2d" {
		t.Errorf("ID = %q", sessions[0].ID)
	}
	if sessions[0].FullPath != path {
		t.Errorf("FullPath = %q", sessions[0].FullPath)
	}
}

func TestStore_GetSessionMeta(t *testing.T) {
	s, path := newCodexFixture(t)
	ctx := context.Background()

	byID, err := s.GetSessionMeta(ctx, "0196fa2d")
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
	if byPath.ID != "0196fa2d" {
		t.Errorf("ID = %q", byPath.ID)
	}

	if _, err := s.GetSessionMeta(ctx, "missing"); !errors.Is(err, retrace.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_GetSessionMeta_RejectsOutsidePath(t *testing.T) {
	s, _ := newCodexFixture(t)

	outside := filepath.Join(t.TempDir(), "elsewhere.jsonl")
	if err := os.WriteFile(outside, []byte(fixtureRollout), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := s.GetSessionMeta(context.Background(), outside); err == nil {
		t.Error("expected error for path outside the store base")
	}
}

func TestStore_LoadSession(t *testing.T) {
	s, _ := newCodexFixture(t)

	session, err := s.LoadSession(context.Background(), "0196fa2d")
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if len(session.Events) != 5 {
		t.Fatalf("got %d events, want 5", len(session.Events))
	}
	if session.Meta.EventCount != 5 {
		t.Errorf("EventCount = %d, want 5", session.Meta.EventCount)
	}
	if session.Events[2].Kind != retrace.KindToolUse {
		t.Errorf("Events[2].Kind = %v, want tool_use", session.Events[2].Kind)
	}
}

func TestStore_OpenSession(t *testing.T) {
	s, _ := newCodexFixture(t)

	r, err := s.OpenSession(context.Background(), "0196fa2d")
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	defer r.Close()

	if r.Metadata().ID != "0196fa2d" {
		t.Errorf("Metadata().ID = %q", r.Metadata().ID)
	}

	n := 0
	for {
		_, err := r.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadNext() error = %v", err)
		}
		n++
	}
	if n != 5 {
		t.Errorf("streamed %d events, want 5", n)
	}
}

func TestStore_ListProjects_NoSessionsDir(t *testing.T) {
	projects, err := NewStore(t.TempDir()).ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("got %d projects, want 0", len(projects))
	}
}
