package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func openLogFixture(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retrace.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestReadLastLines_All(t *testing.T) {
	f := openLogFixture(t, "one\ntwo\nthree\n")

	lines, err := readLastLines(f, 10)
	if err != nil {
		t.Fatalf("readLastLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "one\n" || lines[2] != "three\n" {
		t.Errorf("unexpected lines: %q", lines)
	}
}

func TestReadLastLines_Tail(t *testing.T) {
	f := openLogFixture(t, "one\ntwo\nthree\nfour\n")

	lines, err := readLastLines(f, 2)
	if err != nil {
		t.Fatalf("readLastLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "three\n" || lines[1] != "four\n" {
		t.Errorf("expected last two lines, got %q", lines)
	}
}

func TestReadLastLines_NoTrailingNewline(t *testing.T) {
	f := openLogFixture(t, "one\ntwo")

	lines, err := readLastLines(f, 10)
	if err != nil {
		t.Fatalf("readLastLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1] != "two\n" {
		t.Errorf("expected newline appended to final line, got %q", lines[1])
	}
}

func TestReadLastLines_Empty(t *testing.T) {
	f := openLogFixture(t, "")

	lines, err := readLastLines(f, 10)
	if err != nil {
		t.Fatalf("readLastLines: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %q", lines)
	}
}

func TestTailLogFile_Missing(t *testing.T) {
	err := tailLogFile(filepath.Join(t.TempDir(), "absent.log"), 10, false)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected 'not found' error, got: %v", err)
	}
}
