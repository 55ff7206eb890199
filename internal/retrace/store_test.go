package retrace

import (
	"context"
	"testing"
	"time"
)

// mockStore is a minimal Store implementation for registry tests.
type mockStore struct {
	source   Source
	base     string
	projects []Project
	sessions map[string]*SessionMeta
}

func (m *mockStore) Source() Source   { return m.source }
func (m *mockStore) BasePath() string { return m.base }
func (m *mockStore) ListProjects(ctx context.Context) ([]Project, error) {
	return m.projects, nil
}
func (m *mockStore) GetProject(ctx context.Context, id string) (*Project, error) { return nil, nil }
func (m *mockStore) ListSessions(ctx context.Context, projectID string) ([]SessionMeta, error) {
	return nil, nil
}
func (m *mockStore) GetSessionMeta(ctx context.Context, sessionID string) (*SessionMeta, error) {
	if meta, ok := m.sessions[sessionID]; ok {
		return meta, nil
	}
	return nil, ErrSessionNotFound
}
func (m *mockStore) LoadSession(ctx context.Context, sessionID string) (*Session, error) {
	return nil, ErrSessionNotFound
}
func (m *mockStore) OpenSession(ctx context.Context, sessionID string) (SessionReader, error) {
	return nil, ErrSessionNotFound
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	claude := &mockStore{source: SourceClaude}
	codex := &mockStore{source: SourceCodex}

	reg.Register(claude)
	reg.Register(codex)

	if s, ok := reg.Get(SourceClaude); !ok || s.Source() != SourceClaude {
		t.Error("expected to get claude store")
	}
	if s, ok := reg.Get(SourceCodex); !ok || s.Source() != SourceCodex {
		t.Error("expected to get codex store")
	}
	if _, ok := reg.Get("unknown"); ok {
		t.Error("expected not to find unknown source")
	}
}

func TestRegistry_AllSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStore{source: SourceCodex})
	reg.Register(&mockStore{source: SourceClaude})

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(all))
	}
	if all[0].Source() != SourceClaude || all[1].Source() != SourceCodex {
		t.Errorf("expected stable source order, got %v then %v", all[0].Source(), all[1].Source())
	}
}

func TestRegistry_SourceStatus(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStore{
		source:   SourceClaude,
		base:     "/home/u/.claude",
		projects: []Project{{ID: "p1"}},
	})
	reg.Register(&mockStore{source: SourceCodex, base: "/home/u/.codex"})

	status := reg.SourceStatus(context.Background())
	if len(status) != 2 {
		t.Fatalf("expected 2 source infos, got %d", len(status))
	}
	if !status[0].Available {
		t.Error("claude should be available (has projects)")
	}
	if status[1].Available {
		t.Error("codex should not be available (no projects)")
	}
	if status[0].BasePath != "/home/u/.claude" {
		t.Errorf("unexpected base path %q", status[0].BasePath)
	}
}

func TestRegistry_ListAllProjectsOrdering(t *testing.T) {
	now := time.Now()
	reg := NewRegistry()
	reg.Register(&mockStore{
		source: SourceClaude,
		projects: []Project{
			{ID: "old", LastModified: now.Add(-2 * time.Hour)},
			{ID: "new", LastModified: now},
		},
	})
	reg.Register(&mockStore{
		source:   SourceCodex,
		projects: []Project{{ID: "mid", LastModified: now.Add(-1 * time.Hour)}},
	})

	all, err := reg.ListAllProjects(context.Background())
	if err != nil {
		t.Fatalf("ListAllProjects: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(all))
	}
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}
}

func TestRegistry_FindSession(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStore{source: SourceClaude, sessions: map[string]*SessionMeta{}})
	reg.Register(&mockStore{
		source: SourceCodex,
		sessions: map[string]*SessionMeta{
			"abc": {ID: "abc", Source: SourceCodex},
		},
	})

	store, meta, ok := reg.FindSession(context.Background(), "abc")
	if !ok {
		t.Fatal("expected to find session abc")
	}
	if store.Source() != SourceCodex {
		t.Errorf("expected codex store, got %v", store.Source())
	}
	if meta.ID != "abc" {
		t.Errorf("expected meta for abc, got %q", meta.ID)
	}

	if _, _, ok := reg.FindSession(context.Background(), "missing"); ok {
		t.Error("expected missing session to not be found")
	}
}

func TestRegistry_FindProjectForPath(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStore{
		source: SourceClaude,
		projects: []Project{
			{ID: "home", Path: "/home/u", Source: SourceClaude},
			{ID: "api", Path: "/home/u/work/api", Source: SourceClaude},
		},
	})
	reg.Register(&mockStore{
		source: SourceCodex,
		projects: []Project{
			{ID: "work", Path: "/home/u/work", Source: SourceCodex},
		},
	})

	ctx := context.Background()

	p := reg.FindProjectForPath(ctx, "/home/u/work/api/cmd")
	if p == nil {
		t.Fatal("expected a project for nested path")
	}
	if p.ID != "api" {
		t.Errorf("expected longest match api, got %s", p.ID)
	}

	p = reg.FindProjectForPath(ctx, "/home/u/work/other")
	if p == nil || p.ID != "work" {
		t.Errorf("expected work project, got %+v", p)
	}

	if p := reg.FindProjectForPath(ctx, "/tmp/elsewhere"); p != nil {
		t.Errorf("expected no project for uncovered path, got %s", p.ID)
	}
}
