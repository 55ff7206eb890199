package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/retracehq/retrace/internal/retrace"
)

func TestSessionsFormatter_FormatList(t *testing.T) {
	sessions := []retrace.SessionMeta{
		{FullPath: "/path/to/session1.jsonl", ID: "abc123"},
		{FullPath: "/path/to/session2.jsonl", ID: "def456"},
	}

	var buf bytes.Buffer
	f := NewSessionsFormatter(&buf)
	if err := f.FormatList(sessions); err != nil {
		t.Fatalf("FormatList() error = %v", err)
	}

	got := buf.String()
	want := "/path/to/session1.jsonl\n/path/to/session2.jsonl\n"
	if got != want {
		t.Errorf("FormatList() = %q, want %q", got, want)
	}
}

func TestSessionsFormatter_FormatJSON(t *testing.T) {
	sessions := []retrace.SessionMeta{
		{ID: "abc123", FullPath: "/path/to/session1.jsonl", Source: retrace.SourceClaude, EventCount: 7},
	}

	var buf bytes.Buffer
	f := NewSessionsFormatter(&buf)
	if err := f.FormatJSON(sessions); err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}

	var decoded []retrace.SessionMeta
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("FormatJSON() produced invalid JSON: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("FormatJSON() decoded %d sessions, want 1", len(decoded))
	}
	if decoded[0].ID != "abc123" {
		t.Errorf("decoded ID = %q, want %q", decoded[0].ID, "abc123")
	}
	if decoded[0].EventCount != 7 {
		t.Errorf("decoded EventCount = %d, want 7", decoded[0].EventCount)
	}
}

func TestSessionsFormatter_FormatTable(t *testing.T) {
	modified := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	sessions := []retrace.SessionMeta{
		{
			ID:          "abc123",
			FullPath:    "/path/to/session1.jsonl",
			Source:      retrace.SourceClaude,
			EventCount:  12,
			ModifiedAt:  modified,
			FirstPrompt: "this is a very long first prompt that definitely exceeds the available column width",
		},
		{
			ID:         "def456",
			FullPath:   "/path/to/session2.jsonl",
			Source:     retrace.SourceCodex,
			EventCount: 3,
		},
	}

	const width = 60
	var buf bytes.Buffer
	f := NewSessionsFormatter(&buf)
	if err := f.FormatTable(sessions, width); err != nil {
		t.Fatalf("FormatTable() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"MODIFIED", "SOURCE", "EVENTS", "FIRST PROMPT", "2025-03-14 09:30", "claude", "codex"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatTable() missing %q in output:\n%s", want, got)
		}
	}

	// The long prompt must be truncated to the available width.
	if !strings.Contains(got, "…") {
		t.Errorf("FormatTable() should truncate long prompts with ellipsis:\n%s", got)
	}
	if strings.Contains(got, "column width") {
		t.Errorf("FormatTable() should not show the tail of a truncated prompt:\n%s", got)
	}
	for _, line := range strings.Split(strings.TrimRight(got, "\n"), "\n") {
		if n := utf8.RuneCountInString(line); n > width {
			t.Errorf("line exceeds width %d (%d cells): %q", width, n, line)
		}
	}

	// Sessions without a first prompt fall back to the session ID, and a
	// zero modified time shows a dash.
	if !strings.Contains(got, "def456") {
		t.Errorf("FormatTable() missing ID fallback for promptless session:\n%s", got)
	}
	if !strings.Contains(got, "-  ") {
		t.Errorf("FormatTable() missing dash placeholder for zero modified time:\n%s", got)
	}
}

func TestSessionsFormatter_FormatTable_CollapsesWhitespace(t *testing.T) {
	sessions := []retrace.SessionMeta{
		{ID: "s1", Source: retrace.SourceClaude, FirstPrompt: "line one\n\tline two"},
	}

	var buf bytes.Buffer
	f := NewSessionsFormatter(&buf)
	if err := f.FormatTable(sessions, 100); err != nil {
		t.Fatalf("FormatTable() error = %v", err)
	}

	if !strings.Contains(buf.String(), "line one line two") {
		t.Errorf("FormatTable() should collapse whitespace in prompts:\n%s", buf.String())
	}
}

func TestSessionsFormatter_FormatTable_ZeroWidthFallback(t *testing.T) {
	sessions := []retrace.SessionMeta{
		{ID: "s1", Source: retrace.SourceClaude, FirstPrompt: "hello"},
	}

	var buf bytes.Buffer
	f := NewSessionsFormatter(&buf)
	if err := f.FormatTable(sessions, 0); err != nil {
		t.Fatalf("FormatTable() error = %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("FormatTable() with zero width should still render:\n%s", buf.String())
	}
}

func TestSessionsFormatter_FormatSummary(t *testing.T) {
	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	modified := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	sessions := []retrace.SessionMeta{
		{
			ID:          "abc123",
			FullPath:    "/path/to/session1.jsonl",
			Source:      retrace.SourceClaude,
			EventCount:  12,
			CreatedAt:   created,
			ModifiedAt:  modified,
			GitBranch:   "main",
			FirstPrompt: "fix the flaky test",
		},
	}

	var buf bytes.Buffer
	f := NewSessionsFormatter(&buf)
	if err := f.FormatSummary(sessions, "", SessionListOptions{}); err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{
		"/path/to/session1.jsonl",
		"ID:       abc123",
		"Source:   claude",
		"Events:   12",
		"Created:  2025-03-10 08:00",
		"Modified: 2025-03-14 09:30",
		"Branch:   main",
		"Summary:  fix the flaky test",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatSummary() missing %q in output:\n%s", want, got)
		}
	}
}

func TestSessionsFormatter_FormatSummary_CustomTemplate(t *testing.T) {
	sessions := []retrace.SessionMeta{
		{ID: "abc123", FullPath: "/a/s.jsonl", EventCount: 4},
	}

	var buf bytes.Buffer
	f := NewSessionsFormatter(&buf)
	tmpl := "{{range .}}{{.SessionID}}={{.Events}}\n{{end}}"
	if err := f.FormatSummary(sessions, tmpl, SessionListOptions{}); err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}

	if got, want := buf.String(), "abc123=4\n"; got != want {
		t.Errorf("FormatSummary() = %q, want %q", got, want)
	}
}

func TestSortSessions_ByTime(t *testing.T) {
	sessions := []retrace.SessionMeta{
		{ID: "new", ModifiedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "old", ModifiedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	sortSessions(sessions, "time", false)
	if sessions[0].ID != "old" {
		t.Errorf("ascending sort: sessions[0].ID = %q, want %q", sessions[0].ID, "old")
	}

	sortSessions(sessions, "time", true)
	if sessions[0].ID != "new" {
		t.Errorf("descending sort: sessions[0].ID = %q, want %q", sessions[0].ID, "new")
	}
}

func TestSortSessions_ByName(t *testing.T) {
	sessions := []retrace.SessionMeta{
		{ID: "Zebra"},
		{ID: "apple"},
	}

	sortSessions(sessions, "name", false)
	if sessions[0].ID != "apple" {
		t.Errorf("sessions[0].ID = %q, want %q", sessions[0].ID, "apple")
	}
}

func TestResolveSession_ByID(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{"/data/claude/p1/alpha.jsonl", "/data/claude/p1/beta.jsonl"})

	meta, err := ResolveSession(registry, "", "alpha")
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if meta.FullPath != "/data/claude/p1/alpha.jsonl" {
		t.Errorf("FullPath = %q, want %q", meta.FullPath, "/data/claude/p1/alpha.jsonl")
	}
}

func TestResolveSession_ByFilename(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{"/data/claude/p1/alpha.jsonl"})

	meta, err := ResolveSession(registry, "", "alpha.jsonl")
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if meta.ID != "alpha" {
		t.Errorf("ID = %q, want %q", meta.ID, "alpha")
	}
}

func TestResolveSession_ByAbsolutePath(t *testing.T) {
	path := "/data/claude/p1/alpha.jsonl"
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", []string{path})

	meta, err := ResolveSession(registry, "", path)
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if meta.FullPath != path {
		t.Errorf("FullPath = %q, want %q", meta.FullPath, path)
	}
}

func TestResolveSession_AbsolutePathUnknown(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{"/data/claude/p1/alpha.jsonl"})

	_, err := ResolveSession(registry, "", "/tmp/not-a-session.jsonl")
	if err == nil {
		t.Fatal("ResolveSession() with unknown absolute path should return error")
	}
	if !strings.Contains(err.Error(), "not found in known sources") {
		t.Errorf("error = %q, want mention of known sources", err)
	}
}

func TestResolveSession_NotFound(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{"/data/claude/p1/alpha.jsonl"})

	_, err := ResolveSession(registry, "", "nonexistent")
	if err == nil {
		t.Fatal("ResolveSession() should return error for unknown query")
	}
	if !strings.Contains(err.Error(), "session not found") {
		t.Errorf("error = %q, want session not found", err)
	}
}

func TestResolveSession_Ambiguous(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{"/data/a/chat.jsonl", "/data/b/chat.jsonl"})

	_, err := ResolveSession(registry, "", "chat")
	if err == nil {
		t.Fatal("ResolveSession() should return error for ambiguous query")
	}
	if !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("error = %q, want mention of ambiguity", err)
	}
	if !strings.Contains(err.Error(), "/data/a/chat.jsonl") {
		t.Errorf("error should list candidate paths, got %q", err)
	}
}

func TestResolveSession_EmptyQuery(t *testing.T) {
	registry := retrace.NewRegistry()
	if _, err := ResolveSession(registry, "", "   "); err == nil {
		t.Fatal("ResolveSession() with blank query should return error")
	}
}

func TestListSessionsForProject_NotFound(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{"/data/claude/p1/alpha.jsonl"})

	_, err := ListSessionsForProject(registry, "missing-project")
	if err == nil {
		t.Fatal("ListSessionsForProject() should return error for unknown project")
	}
	if !strings.Contains(err.Error(), "project not found") {
		t.Errorf("error = %q, want project not found", err)
	}
	if !strings.Contains(err.Error(), "retrace projects") {
		t.Errorf("error should hint at the projects command, got %q", err)
	}
}

func TestSessionDeleter_Force(t *testing.T) {
	dir := t.TempDir()
	sessionPath := filepath.Join(dir, "abc123.jsonl")
	if err := os.WriteFile(sessionPath, []byte(`{"type":"user"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", []string{sessionPath})

	var out bytes.Buffer
	deleter := NewSessionDeleter(registry, SessionDeleteOptions{Force: true, Stdout: &out})
	if err := deleter.Delete(sessionPath); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(sessionPath); !os.IsNotExist(err) {
		t.Errorf("session file should be removed, stat err = %v", err)
	}
	if !strings.Contains(out.String(), "Deleted "+sessionPath) {
		t.Errorf("output = %q, want Deleted message", out.String())
	}
}

func TestSessionDeleter_NotFound(t *testing.T) {
	registry := retrace.NewRegistry()

	var out bytes.Buffer
	deleter := NewSessionDeleter(registry, SessionDeleteOptions{Force: true, Stdout: &out})
	err := deleter.Delete("no-such-session")
	if err == nil {
		t.Fatal("Delete() should return error for unknown session")
	}
	if !strings.Contains(err.Error(), "retrace sessions list") {
		t.Errorf("error should hint at sessions list, got %q", err)
	}
}

func TestSessionCopier_ToDirectory(t *testing.T) {
	srcDir := t.TempDir()
	sessionPath := filepath.Join(srcDir, "abc123.jsonl")
	content := []byte(`{"type":"user"}` + "\n")
	if err := os.WriteFile(sessionPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", []string{sessionPath})

	targetDir := t.TempDir()
	var out bytes.Buffer
	copier := NewSessionCopier(registry, SessionCopyOptions{Stdout: &out})
	if err := copier.Copy(sessionPath, targetDir); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	copied, err := os.ReadFile(filepath.Join(targetDir, "abc123.jsonl"))
	if err != nil {
		t.Fatalf("copied file not readable: %v", err)
	}
	if !bytes.Equal(copied, content) {
		t.Errorf("copied content = %q, want %q", copied, content)
	}
	if !strings.Contains(out.String(), "Copied ") {
		t.Errorf("output = %q, want Copied message", out.String())
	}
}

func TestSessionCopier_ToFilePath(t *testing.T) {
	srcDir := t.TempDir()
	sessionPath := filepath.Join(srcDir, "abc123.jsonl")
	if err := os.WriteFile(sessionPath, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", []string{sessionPath})

	target := filepath.Join(t.TempDir(), "renamed.jsonl")
	copier := NewSessionCopier(registry, SessionCopyOptions{Stdout: &bytes.Buffer{}})
	if err := copier.Copy("abc123", target); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	if _, err := os.Stat(target); err != nil {
		t.Errorf("copy target missing: %v", err)
	}
}

func TestSessionCopier_CreatesDirectoryForExtensionlessTarget(t *testing.T) {
	srcDir := t.TempDir()
	sessionPath := filepath.Join(srcDir, "abc123.jsonl")
	if err := os.WriteFile(sessionPath, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", []string{sessionPath})

	target := filepath.Join(t.TempDir(), "exports", "batch1")
	copier := NewSessionCopier(registry, SessionCopyOptions{Stdout: &bytes.Buffer{}})
	if err := copier.Copy("abc123", target); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "abc123.jsonl")); err != nil {
		t.Errorf("copy target missing: %v", err)
	}
}
