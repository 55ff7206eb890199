package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
)

func writeSessionFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProjectCopier_Copy_Success(t *testing.T) {
	tmpDir := t.TempDir()
	projectPath := filepath.Join(tmpDir, "workspace", "myproject")

	sessionA := filepath.Join(tmpDir, "store", "aaa.jsonl")
	sessionB := filepath.Join(tmpDir, "store", "bbb.jsonl")
	writeSessionFile(t, sessionA, `{"type":"user"}`+"\n")
	writeSessionFile(t, sessionB, `{"type":"assistant"}`+"\n")

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", projectPath,
		[]string{sessionA, sessionB})

	targetDir := filepath.Join(tmpDir, "backup")
	var out bytes.Buffer
	copier := NewProjectCopier(registry, CopyOptions{Stdout: &out})
	if err := copier.Copy("p1", targetDir); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	for _, name := range []string{"aaa.jsonl", "bbb.jsonl"} {
		if _, err := os.Stat(filepath.Join(targetDir, name)); err != nil {
			t.Errorf("expected copied file %s: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "Copied 2 files") {
		t.Errorf("output = %q, want Copied 2 files", out.String())
	}
}

func TestProjectCopier_Copy_RelativePathQuery(t *testing.T) {
	tmpDir := t.TempDir()
	projectPath := filepath.Join(tmpDir, "myproject")
	if err := os.MkdirAll(projectPath, 0755); err != nil {
		t.Fatal(err)
	}

	session := filepath.Join(tmpDir, "store", "aaa.jsonl")
	writeSessionFile(t, session, "x\n")

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", projectPath,
		[]string{session})

	origWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	targetDir := filepath.Join(tmpDir, "backup")
	copier := NewProjectCopier(registry, CopyOptions{Stdout: &bytes.Buffer{}})
	if err := copier.Copy("./myproject", targetDir); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(targetDir, "aaa.jsonl")); err != nil {
		t.Errorf("expected copied file: %v", err)
	}
}

func TestProjectCopier_Copy_NotFound(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", nil)

	copier := NewProjectCopier(registry, CopyOptions{Stdout: &bytes.Buffer{}})
	err := copier.Copy("no-such-project", t.TempDir())
	if err == nil {
		t.Fatal("Copy() should return error for unknown project")
	}
	if !strings.Contains(err.Error(), "project not found") {
		t.Errorf("error = %q, want project not found", err)
	}
}

func TestProjectCopier_Copy_NoSessions(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", nil)

	copier := NewProjectCopier(registry, CopyOptions{Stdout: &bytes.Buffer{}})
	err := copier.Copy("p1", t.TempDir())
	if err == nil {
		t.Fatal("Copy() should return error for project without sessions")
	}
	if !strings.Contains(err.Error(), "no sessions found") {
		t.Errorf("error = %q, want no sessions found", err)
	}
}

func TestProjectCopier_Copy_NameCollision(t *testing.T) {
	tmpDir := t.TempDir()

	sessionA := filepath.Join(tmpDir, "store", "a", "session.jsonl")
	sessionB := filepath.Join(tmpDir, "store", "b", "session.jsonl")
	writeSessionFile(t, sessionA, "first\n")
	writeSessionFile(t, sessionB, "second\n")

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{sessionA, sessionB})

	targetDir := filepath.Join(tmpDir, "backup")
	copier := NewProjectCopier(registry, CopyOptions{Stdout: &bytes.Buffer{}})
	if err := copier.Copy("p1", targetDir); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	// Duplicate base names get a numeric suffix instead of clobbering.
	if _, err := os.Stat(filepath.Join(targetDir, "session.jsonl")); err != nil {
		t.Errorf("expected session.jsonl: %v", err)
	}
	if _, err := os.Stat(filepath.Join(targetDir, "session_2.jsonl")); err != nil {
		t.Errorf("expected session_2.jsonl: %v", err)
	}
}

func TestWithCopySuffix(t *testing.T) {
	if got, want := withCopySuffix("session.jsonl", 2), "session_2.jsonl"; got != want {
		t.Errorf("withCopySuffix() = %q, want %q", got, want)
	}
	if got, want := withCopySuffix("notes", 3), "notes_3"; got != want {
		t.Errorf("withCopySuffix() = %q, want %q", got, want)
	}
}
