package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

func TestListEmbeddedTemplates(t *testing.T) {
	names, err := ListEmbeddedTemplates()
	if err != nil {
		t.Fatalf("ListEmbeddedTemplates() error = %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no embedded templates")
	}
	found := false
	for _, n := range names {
		if n == "transcript.md.tmpl" {
			found = true
		}
	}
	if !found {
		t.Errorf("transcript.md.tmpl missing from %v", names)
	}
}

func TestLoadTemplateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.tmpl")
	content := `{{range .Events}}{{heading .}}: {{truncate .Content 10}}
{{end}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tmpl, err := LoadTemplateFile(path)
	if err != nil {
		t.Fatalf("LoadTemplateFile() error = %v", err)
	}

	var buf bytes.Buffer
	f := NewFormatter(&buf, FormatMarkdown, WithTemplate(tmpl))
	if err := f.Write(&retrace.Session{
		Events: []retrace.Event{
			{Kind: retrace.KindUser, Content: "a very long prompt body"},
		},
	}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "User: a very lon...") {
		t.Errorf("custom template not applied, got: %q", got)
	}
}

func TestEventHeading(t *testing.T) {
	tests := []struct {
		ev   retrace.Event
		want string
	}{
		{retrace.Event{Kind: retrace.KindUser}, "User"},
		{retrace.Event{Kind: retrace.KindAssistant}, "Assistant"},
		{retrace.Event{Kind: retrace.KindThinking}, "Thinking"},
		{retrace.Event{Kind: retrace.KindToolUse}, "Tool"},
		{retrace.Event{Kind: retrace.KindToolUse, ToolName: "Bash"}, "Tool: Bash"},
		{retrace.Event{Kind: retrace.KindToolResult}, "Result"},
		{retrace.Event{Kind: retrace.KindToolResult, IsError: true}, "Result (error)"},
		{
			retrace.Event{
				Kind:      retrace.KindUser,
				Timestamp: time.Date(2026, 1, 24, 9, 30, 0, 0, time.UTC),
			},
			"User (09:30:00)",
		},
	}

	for _, tt := range tests {
		if got := eventHeading(tt.ev); got != tt.want {
			t.Errorf("eventHeading(%s) = %q, want %q", tt.ev.Kind, got, tt.want)
		}
	}
}

func TestToolInputJSON(t *testing.T) {
	if got := toolInputJSON(nil); got != "{}" {
		t.Errorf("empty input = %q, want {}", got)
	}
	got := toolInputJSON(map[string]any{"file_path": "/tmp/a.go"})
	if !strings.Contains(got, `"file_path": "/tmp/a.go"`) {
		t.Errorf("toolInputJSON = %q", got)
	}
}

func TestSessionTitleFallbacks(t *testing.T) {
	meta := retrace.SessionMeta{ID: "id-1", FirstPrompt: "first\nprompt"}
	if got := sessionTitle(meta); got != "first prompt" {
		t.Errorf("sessionTitle = %q, want first prompt", got)
	}
	if got := sessionTitle(retrace.SessionMeta{ID: "id-1"}); got != "id-1" {
		t.Errorf("sessionTitle = %q, want id-1", got)
	}
}
