package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

// fakeStore serves canned projects and sessions so scans run against a
// predictable layout. Session files are real files on disk because search
// reads them back.
type fakeStore struct {
	source   retrace.Source
	projects []retrace.Project
	sessions map[string][]retrace.SessionMeta // project ID -> sessions
}

func (f *fakeStore) Source() retrace.Source { return f.source }
func (f *fakeStore) BasePath() string       { return "/nonexistent" }

func (f *fakeStore) ListProjects(ctx context.Context) ([]retrace.Project, error) {
	return f.projects, nil
}

func (f *fakeStore) GetProject(ctx context.Context, id string) (*retrace.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, retrace.ErrProjectNotFound
}

func (f *fakeStore) ListSessions(ctx context.Context, projectID string) ([]retrace.SessionMeta, error) {
	return f.sessions[projectID], nil
}

func (f *fakeStore) GetSessionMeta(ctx context.Context, sessionID string) (*retrace.SessionMeta, error) {
	for _, metas := range f.sessions {
		for _, m := range metas {
			if m.ID == sessionID {
				return &m, nil
			}
		}
	}
	return nil, retrace.ErrSessionNotFound
}

func (f *fakeStore) LoadSession(ctx context.Context, sessionID string) (*retrace.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) OpenSession(ctx context.Context, sessionID string) (retrace.SessionReader, error) {
	return nil, errors.New("not implemented")
}

var _ retrace.Store = (*fakeStore)(nil)

// writeSessionFile writes JSONL lines to dir and returns a meta describing
// the file.
func writeSessionFile(t *testing.T, dir, id string, lines string) retrace.SessionMeta {
	t.Helper()
	path := filepath.Join(dir, id+".jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write session file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	return retrace.SessionMeta{
		ID:          id,
		FullPath:    path,
		FirstPrompt: "first prompt",
		EventCount:  2,
		CreatedAt:   info.ModTime().Add(-time.Minute),
		ModifiedAt:  info.ModTime(),
		Source:      retrace.SourceClaude,
		FileSize:    info.Size(),
	}
}

func testStore(t *testing.T) *fakeStore {
	t.Helper()
	dir := t.TempDir()
	return &fakeStore{
		source: retrace.SourceClaude,
		projects: []retrace.Project{{
			ID:     "proj-1",
			Name:   "demo",
			Path:   "/home/dev/demo",
			Source: retrace.SourceClaude,
		}},
		sessions: map[string][]retrace.SessionMeta{
			"proj-1": {
				writeSessionFile(t, dir, "sess-a", `{"type":"user","text":"hello world"}`+"\n"),
				writeSessionFile(t, dir, "sess-b", `{"type":"assistant","text":"general reply"}`+"\n"),
			},
		},
	}
}

func testRegistry(stores ...retrace.Store) *retrace.StoreRegistry {
	registry := retrace.NewRegistry()
	for _, s := range stores {
		registry.Register(s)
	}
	return registry
}

func TestScanIngestsAndSkips(t *testing.T) {
	db := openTestDB(t)
	store := testStore(t)
	scanner := NewScanner(db, testRegistry(store))
	ctx := context.Background()

	result, err := scanner.Scan(ctx, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Projects != 1 || result.Sessions != 2 || result.Skipped != 0 {
		t.Errorf("first scan = %+v, want 1 project, 2 sessions, 0 skipped", result)
	}

	projects, sessions, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if projects != 1 || sessions != 2 {
		t.Errorf("Counts() = (%d, %d), want (1, 2)", projects, sessions)
	}

	// Nothing changed on disk, so a second scan skips everything.
	result, err = scanner.Scan(ctx, ScanOptions{})
	if err != nil {
		t.Fatalf("second Scan() error = %v", err)
	}
	if result.Sessions != 0 || result.Skipped != 2 {
		t.Errorf("second scan = %+v, want 0 sessions, 2 skipped", result)
	}
}

func TestScanDetectsChangedFile(t *testing.T) {
	db := openTestDB(t)
	store := testStore(t)
	scanner := NewScanner(db, testRegistry(store))
	ctx := context.Background()

	if _, err := scanner.Scan(ctx, ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// Simulate an append: the store reports a bigger, newer file.
	meta := &store.sessions["proj-1"][0]
	meta.FileSize += 100
	meta.ModifiedAt = meta.ModifiedAt.Add(time.Second)
	meta.EventCount = 5

	result, err := scanner.Scan(ctx, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Sessions != 1 || result.Skipped != 1 {
		t.Errorf("scan after change = %+v, want 1 session, 1 skipped", result)
	}

	var eventCount int
	if err := db.QueryRowContext(ctx,
		"SELECT event_count FROM sessions WHERE id = ?", meta.ID).Scan(&eventCount); err != nil {
		t.Fatalf("query session: %v", err)
	}
	if eventCount != 5 {
		t.Errorf("event_count = %d, want 5", eventCount)
	}
}

func TestScanRebuild(t *testing.T) {
	db := openTestDB(t)
	store := testStore(t)
	scanner := NewScanner(db, testRegistry(store))
	ctx := context.Background()

	if _, err := scanner.Scan(ctx, ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	result, err := scanner.Scan(ctx, ScanOptions{Rebuild: true})
	if err != nil {
		t.Fatalf("rebuild Scan() error = %v", err)
	}
	if result.Sessions != 2 || result.Skipped != 0 {
		t.Errorf("rebuild scan = %+v, want all 2 sessions re-ingested", result)
	}
}

func TestScanPrunesDeletedSessions(t *testing.T) {
	db := openTestDB(t)
	store := testStore(t)
	scanner := NewScanner(db, testRegistry(store))
	ctx := context.Background()

	if _, err := scanner.Scan(ctx, ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	store.sessions["proj-1"] = store.sessions["proj-1"][:1]

	result, err := scanner.Scan(ctx, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", result.Pruned)
	}

	_, sessions, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if sessions != 1 {
		t.Errorf("sessions after prune = %d, want 1", sessions)
	}
}

func TestScanPrunesDeletedProjects(t *testing.T) {
	db := openTestDB(t)
	store := testStore(t)
	scanner := NewScanner(db, testRegistry(store))
	ctx := context.Background()

	if _, err := scanner.Scan(ctx, ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	store.projects = nil

	result, err := scanner.Scan(ctx, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Pruned == 0 {
		t.Error("Pruned = 0, want the vanished project counted")
	}

	projects, sessions, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if projects != 0 || sessions != 0 {
		t.Errorf("Counts() = (%d, %d), want (0, 0)", projects, sessions)
	}
}

func TestScanSourceFilter(t *testing.T) {
	db := openTestDB(t)
	claude := testStore(t)

	dir := t.TempDir()
	codexMeta := writeSessionFile(t, dir, "sess-c", `{"type":"user","text":"codex session"}`+"\n")
	codexMeta.Source = retrace.SourceCodex
	codex := &fakeStore{
		source: retrace.SourceCodex,
		projects: []retrace.Project{{
			ID:     "proj-2",
			Name:   "other",
			Path:   "/home/dev/other",
			Source: retrace.SourceCodex,
		}},
		sessions: map[string][]retrace.SessionMeta{"proj-2": {codexMeta}},
	}

	scanner := NewScanner(db, testRegistry(claude, codex))
	ctx := context.Background()

	result, err := scanner.Scan(ctx, ScanOptions{Sources: []retrace.Source{retrace.SourceClaude}})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Projects != 1 {
		t.Errorf("Projects = %d, want only the claude project", result.Projects)
	}

	var got int
	if err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sessions WHERE source = ?", "codex").Scan(&got); err != nil {
		t.Fatalf("query sessions: %v", err)
	}
	if got != 0 {
		t.Errorf("codex sessions indexed = %d, want 0", got)
	}
}

func TestScanReportsProgress(t *testing.T) {
	db := openTestDB(t)
	store := testStore(t)
	scanner := NewScanner(db, testRegistry(store))

	var calls int
	scanner.OnProgress = func(p retrace.Project, done, total int) {
		calls++
		if total != 1 {
			t.Errorf("total = %d, want 1", total)
		}
	}

	if _, err := scanner.Scan(context.Background(), ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("progress calls = %d, want 1", calls)
	}
}

func TestSyncSessionRefreshesRow(t *testing.T) {
	db := openTestDB(t)
	store := testStore(t)
	scanner := NewScanner(db, testRegistry(store))
	ctx := context.Background()

	if _, err := scanner.Scan(ctx, ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	meta := &store.sessions["proj-1"][0]
	meta.EventCount = 42
	meta.Summary = "updated summary"

	if err := scanner.SyncSession(ctx, store.projects[0], meta.ID); err != nil {
		t.Fatalf("SyncSession() error = %v", err)
	}

	var eventCount int
	var summary string
	if err := db.QueryRowContext(ctx,
		"SELECT event_count, summary FROM sessions WHERE id = ?", meta.ID).Scan(&eventCount, &summary); err != nil {
		t.Fatalf("query session: %v", err)
	}
	if eventCount != 42 || summary != "updated summary" {
		t.Errorf("row = (%d, %q), want (42, %q)", eventCount, summary, "updated summary")
	}
}
