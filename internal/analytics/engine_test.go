package analytics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
)

func writeJSONL(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// newTestEngine builds an engine over two Claude sessions in project "alpha"
// and one Codex session in project "beta". The fixtures include lines the
// queries must skip: a summary line, a reasoning line, and one that is not
// JSON at all.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	sessA := writeJSONL(t, dir, "sess-1.jsonl", []string{
		`{"type":"summary","summary":"greeting session"}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hello there"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:05Z","message":{"role":"assistant","model":"claude-sonnet","content":[{"type":"text","text":"hi"},{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}],"usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":25,"cache_creation_input_tokens":10}}}`,
		`not json at all`,
		`{"type":"user","timestamp":"2025-06-01T10:01:00Z","message":{"role":"user","content":"thanks"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:01:05Z","message":{"role":"assistant","model":"claude-sonnet","content":[{"type":"text","text":"welcome"}],"usage":{"input_tokens":200,"output_tokens":80}}}`,
	})
	sessB := writeJSONL(t, dir, "sess-2.jsonl", []string{
		`{"type":"user","timestamp":"2025-06-02T09:30:00Z","message":{"role":"user","content":"deploy it"}}`,
		`{"type":"assistant","timestamp":"2025-06-02T09:30:10Z","message":{"role":"assistant","model":"claude-haiku","content":[{"type":"tool_use","id":"t2","name":"Bash","input":{"command":"make deploy"}}],"usage":{"input_tokens":50,"output_tokens":20,"cache_read_input_tokens":5}}}`,
	})
	sessC := writeJSONL(t, dir, "rollout-sess-3.jsonl", []string{
		`{"timestamp":"2025-06-02T09:00:00Z","type":"event_msg","payload":{"type":"user_message","message":"fix the bug"}}`,
		`{"timestamp":"2025-06-02T09:00:05Z","type":"response_item","payload":{"type":"function_call","name":"shell","call_id":"c1","arguments":"{\"command\":[\"ls\"]}"}}`,
		`{"timestamp":"2025-06-02T09:00:08Z","type":"event_msg","payload":{"type":"agent_reasoning","text":"thinking"}}`,
		`{"timestamp":"2025-06-02T09:00:10Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"done"}]}}`,
	})

	eng, err := NewEngine([]SessionFile{
		{Path: sessA, SessionID: "sess-1", ProjectName: "alpha", Source: retrace.SourceClaude},
		{Path: sessB, SessionID: "sess-2", ProjectName: "alpha", Source: retrace.SourceClaude},
		{Path: sessC, SessionID: "sess-3", ProjectName: "beta", Source: retrace.SourceCodex},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestGetTotals(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	tot, err := eng.GetTotals(ctx)
	if err != nil {
		t.Fatalf("GetTotals: %v", err)
	}
	if tot.Sessions != 3 {
		t.Errorf("Sessions = %d, want 3", tot.Sessions)
	}
	if tot.UserMessages != 4 {
		t.Errorf("UserMessages = %d, want 4", tot.UserMessages)
	}
	if tot.AssistantMessages != 4 {
		t.Errorf("AssistantMessages = %d, want 4", tot.AssistantMessages)
	}
	if got := tot.FirstActivity.Format("2006-01-02 15:04"); got != "2025-06-01 10:00" {
		t.Errorf("FirstActivity = %s, want 2025-06-01 10:00", got)
	}
	if got := tot.LastActivity.Format("2006-01-02 15:04"); got != "2025-06-02 09:30" {
		t.Errorf("LastActivity = %s, want 2025-06-02 09:30", got)
	}
}

func TestGetActivity(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	days, err := eng.GetActivity(ctx, 30)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}

	// Newest day first.
	if got := days[0].Date.Format("2006-01-02"); got != "2025-06-02" {
		t.Errorf("days[0].Date = %s, want 2025-06-02", got)
	}
	if days[0].Sessions != 2 || days[0].Messages != 4 {
		t.Errorf("days[0] = %d sessions / %d messages, want 2 / 4", days[0].Sessions, days[0].Messages)
	}
	if days[1].Sessions != 1 || days[1].Messages != 4 {
		t.Errorf("days[1] = %d sessions / %d messages, want 1 / 4", days[1].Sessions, days[1].Messages)
	}
}

func TestGetActivityLimit(t *testing.T) {
	eng := newTestEngine(t)

	days, err := eng.GetActivity(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("got %d days, want 1", len(days))
	}
	if got := days[0].Date.Format("2006-01-02"); got != "2025-06-02" {
		t.Errorf("days[0].Date = %s, want 2025-06-02", got)
	}
}

func TestGetProjectActivity(t *testing.T) {
	eng := newTestEngine(t)

	projects, err := eng.GetProjectActivity(context.Background())
	if err != nil {
		t.Fatalf("GetProjectActivity: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}

	alpha := projects[0]
	if alpha.Project != "alpha" || alpha.Source != retrace.SourceClaude {
		t.Errorf("projects[0] = %s/%s, want alpha/claude", alpha.Project, alpha.Source)
	}
	if alpha.Sessions != 2 || alpha.Messages != 6 {
		t.Errorf("alpha = %d sessions / %d messages, want 2 / 6", alpha.Sessions, alpha.Messages)
	}
	if got := alpha.LastActive.Format("2006-01-02 15:04"); got != "2025-06-02 09:30" {
		t.Errorf("alpha.LastActive = %s, want 2025-06-02 09:30", got)
	}

	beta := projects[1]
	if beta.Project != "beta" || beta.Source != retrace.SourceCodex {
		t.Errorf("projects[1] = %s/%s, want beta/codex", beta.Project, beta.Source)
	}
	if beta.Sessions != 1 || beta.Messages != 2 {
		t.Errorf("beta = %d sessions / %d messages, want 1 / 2", beta.Sessions, beta.Messages)
	}
}

func TestGetToolStats(t *testing.T) {
	eng := newTestEngine(t)

	tools, err := eng.GetToolStats(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetToolStats: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}
	if tools[0].ToolName != "Bash" || tools[0].UsageCount != 2 {
		t.Errorf("tools[0] = %s/%d, want Bash/2", tools[0].ToolName, tools[0].UsageCount)
	}
	if tools[1].ToolName != "shell" || tools[1].UsageCount != 1 {
		t.Errorf("tools[1] = %s/%d, want shell/1", tools[1].ToolName, tools[1].UsageCount)
	}
}

func TestGetTokenStats(t *testing.T) {
	eng := newTestEngine(t)

	stats, err := eng.GetTokenStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetTokenStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d sessions, want 1", len(stats))
	}

	top := stats[0]
	if top.SessionID != "sess-1" || top.ProjectName != "alpha" {
		t.Errorf("top session = %s/%s, want sess-1/alpha", top.SessionID, top.ProjectName)
	}
	if top.InputTokens != 300 || top.OutputTokens != 130 {
		t.Errorf("tokens = %d in / %d out, want 300 / 130", top.InputTokens, top.OutputTokens)
	}
	if top.CacheTokens != 35 {
		t.Errorf("CacheTokens = %d, want 35", top.CacheTokens)
	}
	if top.TotalTokens != 430 {
		t.Errorf("TotalTokens = %d, want 430", top.TotalTokens)
	}
}

func TestGetModelStats(t *testing.T) {
	eng := newTestEngine(t)

	models, err := eng.GetModelStats(context.Background())
	if err != nil {
		t.Fatalf("GetModelStats: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Model != "claude-sonnet" || models[0].Responses != 2 {
		t.Errorf("models[0] = %s/%d, want claude-sonnet/2", models[0].Model, models[0].Responses)
	}
	if models[0].AvgOutputTokens != 65 {
		t.Errorf("AvgOutputTokens = %f, want 65", models[0].AvgOutputTokens)
	}
	if models[1].Model != "claude-haiku" || models[1].Responses != 1 {
		t.Errorf("models[1] = %s/%d, want claude-haiku/1", models[1].Model, models[1].Responses)
	}
}

func TestEmptyEngine(t *testing.T) {
	eng, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer eng.Close()
	ctx := context.Background()

	tot, err := eng.GetTotals(ctx)
	if err != nil {
		t.Fatalf("GetTotals: %v", err)
	}
	if tot.Sessions != 0 || tot.UserMessages != 0 {
		t.Errorf("empty totals = %+v, want zeros", tot)
	}
	if days, err := eng.GetActivity(ctx, 7); err != nil || len(days) != 0 {
		t.Errorf("GetActivity = %v, %v; want empty, nil", days, err)
	}
	if tools, err := eng.GetToolStats(ctx, 5); err != nil || len(tools) != 0 {
		t.Errorf("GetToolStats = %v, %v; want empty, nil", tools, err)
	}
}

type fakeStore struct {
	source   retrace.Source
	projects []retrace.Project
	sessions map[string][]retrace.SessionMeta
}

var _ retrace.Store = (*fakeStore)(nil)

func (s *fakeStore) Source() retrace.Source { return s.source }
func (s *fakeStore) BasePath() string       { return "" }

func (s *fakeStore) ListProjects(ctx context.Context) ([]retrace.Project, error) {
	return s.projects, nil
}

func (s *fakeStore) GetProject(ctx context.Context, id string) (*retrace.Project, error) {
	for _, p := range s.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, retrace.ErrProjectNotFound
}

func (s *fakeStore) ListSessions(ctx context.Context, projectID string) ([]retrace.SessionMeta, error) {
	return s.sessions[projectID], nil
}

func (s *fakeStore) GetSessionMeta(ctx context.Context, sessionID string) (*retrace.SessionMeta, error) {
	for _, metas := range s.sessions {
		for _, meta := range metas {
			if meta.ID == sessionID {
				return &meta, nil
			}
		}
	}
	return nil, retrace.ErrSessionNotFound
}

func (s *fakeStore) LoadSession(ctx context.Context, sessionID string) (*retrace.Session, error) {
	return nil, retrace.ErrSessionNotFound
}

func (s *fakeStore) OpenSession(ctx context.Context, sessionID string) (retrace.SessionReader, error) {
	return nil, retrace.ErrSessionNotFound
}

func TestCollectFiles(t *testing.T) {
	store := &fakeStore{
		source: retrace.SourceClaude,
		projects: []retrace.Project{
			{ID: "proj-1", Name: "alpha", Path: "/home/u/alpha"},
			{ID: "proj-2", Name: "beta", Path: "/home/u/beta"},
		},
		sessions: map[string][]retrace.SessionMeta{
			"proj-1": {
				{ID: "sess-1", FullPath: "/tmp/sess-1.jsonl"},
				{ID: "sess-2", FullPath: "/tmp/sess-2.jsonl"},
			},
			"proj-2": {
				{ID: "sess-3", FullPath: "/tmp/sess-3.jsonl"},
				{ID: "sess-4"}, // no path recorded, must be skipped
			},
		},
	}
	registry := retrace.NewRegistry()
	registry.Register(store)
	ctx := context.Background()

	files, err := CollectFiles(ctx, registry, "")
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	for _, f := range files {
		if f.Source != retrace.SourceClaude {
			t.Errorf("file %s has source %s, want claude", f.Path, f.Source)
		}
	}

	// Filter by project name.
	files, err = CollectFiles(ctx, registry, "beta")
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].SessionID != "sess-3" || files[0].ProjectName != "beta" {
		t.Errorf("got %s/%s, want sess-3/beta", files[0].SessionID, files[0].ProjectName)
	}

	// Filter by project path.
	files, err = CollectFiles(ctx, registry, "/home/u/alpha")
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}
