package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
)

func TestProjectDeleter_Delete_NotFound(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", nil)

	deleter := NewProjectDeleter(registry, DeleteOptions{Force: true, Stdout: &bytes.Buffer{}})
	err := deleter.Delete("no-such-project")
	if err == nil {
		t.Fatal("Delete() should return error for unknown project")
	}
	if !strings.Contains(err.Error(), "project not found") {
		t.Errorf("error = %q, want project not found", err)
	}
}

func TestProjectDeleter_Delete_NoSessions(t *testing.T) {
	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", nil)

	deleter := NewProjectDeleter(registry, DeleteOptions{Force: true, Stdout: &bytes.Buffer{}})
	err := deleter.Delete("p1")
	if err == nil {
		t.Fatal("Delete() should return error for project without sessions")
	}
	if !strings.Contains(err.Error(), "no sessions found") {
		t.Errorf("error = %q, want no sessions found", err)
	}
}

func TestProjectDeleter_Delete_Force(t *testing.T) {
	tmpDir := t.TempDir()
	session := filepath.Join(tmpDir, "store", "aaa.jsonl")
	writeSessionFile(t, session, "x\n")

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{session})

	var out bytes.Buffer
	deleter := NewProjectDeleter(registry, DeleteOptions{Force: true, Stdout: &out})
	if err := deleter.Delete("p1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(session); !os.IsNotExist(err) {
		t.Errorf("session file should be removed, stat err = %v", err)
	}
	if !strings.Contains(out.String(), "Deleted /work/demo (1 sessions)") {
		t.Errorf("output = %q, want deletion summary", out.String())
	}
}

func TestProjectDeleter_Delete_ForceMultipleSessions(t *testing.T) {
	tmpDir := t.TempDir()
	paths := []string{
		filepath.Join(tmpDir, "store", "aaa.jsonl"),
		filepath.Join(tmpDir, "store", "bbb.jsonl"),
		filepath.Join(tmpDir, "store", "ccc.jsonl"),
	}
	for _, p := range paths {
		writeSessionFile(t, p, "x\n")
	}

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo", paths)

	var out bytes.Buffer
	deleter := NewProjectDeleter(registry, DeleteOptions{Force: true, Stdout: &out})
	if err := deleter.Delete("p1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("session file %s should be removed, stat err = %v", p, err)
		}
	}
	if !strings.Contains(out.String(), "3 sessions") {
		t.Errorf("output = %q, want 3 sessions", out.String())
	}
}

func TestProjectDeleter_Delete_SkipsMissingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "store", "aaa.jsonl")
	missing := filepath.Join(tmpDir, "store", "gone.jsonl")
	writeSessionFile(t, existing, "x\n")

	registry := makeSingleProjectRegistry(retrace.SourceClaude, "p1", "/work/demo",
		[]string{existing, missing})

	var out bytes.Buffer
	deleter := NewProjectDeleter(registry, DeleteOptions{Force: true, Stdout: &out})
	if err := deleter.Delete("p1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// Only files that actually existed count toward the summary.
	if !strings.Contains(out.String(), "(1 sessions)") {
		t.Errorf("output = %q, want 1 sessions", out.String())
	}
}
