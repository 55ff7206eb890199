package tuilog

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerLifecycle(t *testing.T) {
	if Log.Enabled() {
		t.Fatal("logger should start disabled")
	}
	if Log.Writer() != io.Discard {
		t.Fatal("disabled logger should hand out io.Discard")
	}
	Log.Info("dropped while disabled", "k", "v")

	path := filepath.Join(t.TempDir(), "retrace.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !Log.Enabled() {
		t.Fatal("logger should be enabled after Init")
	}

	Log.Info("hello", "answer", 42)
	Log.Warn("odd pair", "dangling")
	if err := Log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if Log.Enabled() {
		t.Fatal("logger should be disabled after Close")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// Init writes a startup line, then the two messages.
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["answer"] != float64(42) {
		t.Errorf("answer = %v, want 42", entry["answer"])
	}
	if entry["time"] == nil {
		t.Error("expected a timestamp field")
	}

	if strings.Contains(lines[2], "dangling") {
		t.Error("dangling key should be dropped, not logged as a value")
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "error")

	path := filepath.Join(t.TempDir(), "retrace.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Log.Debug("quiet")
	Log.Error("loud")
	if err := Log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "quiet") {
		t.Error("debug line logged despite error threshold")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("error line missing")
	}
}
