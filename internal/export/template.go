package export

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/bytedance/sonic"

	"github.com/retracehq/retrace/internal/retrace"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// TemplateHelp documents the variables and functions available to custom
// export templates.
const TemplateHelp = `Template Variables
==================

Top-level:
  .Title        string      - Session title (summary, first prompt, or ID)
  .Meta         SessionMeta - ID, ProjectPath, GitBranch, Model, Source, ...
  .Events       []Event     - Ordered transcript events
  .Count        int         - Number of events
  .Exported     time.Time   - Export timestamp

Each Event in .Events:
  .Kind         string      - user, assistant, tool_use, tool_result, thinking
  .Content      string      - Message text, reasoning, or tool output
  .ToolName     string      - Tool name (tool_use only)
  .ToolInput    map         - Invocation payload (tool_use only)
  .IsError      bool        - Failed tool result
  .Timestamp    time.Time   - May be zero

Template Functions:
  heading .                       - Section heading for an event
  formatTime .Timestamp "15:04"   - Format a timestamp, "" when zero
  toolInput .ToolInput            - Invocation payload as indented JSON
  truncate .Content 100           - Truncate string
  lineCount .Content              - Count lines
  wordCount .Content              - Count words

Example custom template:
  {{range .Events}}
  ## {{heading .}}
  {{.Content}}
  {{end}}`

// TemplateData contains all variables available to export templates.
type TemplateData struct {
	Title    string
	Meta     retrace.SessionMeta
	Events   []retrace.Event
	Count    int
	Exported time.Time
}

// NewTemplateData builds template data for a session. now stamps the
// Exported field so output is reproducible in tests.
func NewTemplateData(s *retrace.Session, now time.Time) *TemplateData {
	return &TemplateData{
		Title:    sessionTitle(s.Meta),
		Meta:     s.Meta,
		Events:   s.Events,
		Count:    len(s.Events),
		Exported: now,
	}
}

func sessionTitle(meta retrace.SessionMeta) string {
	for _, candidate := range []string{meta.Summary, meta.FirstPrompt} {
		if title := strings.Join(strings.Fields(candidate), " "); title != "" {
			return title
		}
	}
	return meta.ID
}

// eventHeading renders the section heading for an event: the kind label,
// the tool name for invocations, and the wall-clock time when known.
func eventHeading(ev retrace.Event) string {
	var h string
	switch ev.Kind {
	case retrace.KindUser:
		h = "User"
	case retrace.KindAssistant:
		h = "Assistant"
	case retrace.KindThinking:
		h = "Thinking"
	case retrace.KindToolUse:
		h = "Tool"
		if ev.ToolName != "" {
			h = "Tool: " + ev.ToolName
		}
	case retrace.KindToolResult:
		h = "Result"
		if ev.IsError {
			h = "Result (error)"
		}
	default:
		h = string(ev.Kind)
	}
	if !ev.Timestamp.IsZero() {
		h += ev.Timestamp.Format(" (15:04:05)")
	}
	return h
}

// toolInputJSON renders an invocation payload as indented JSON.
func toolInputJSON(input map[string]any) string {
	if len(input) == 0 {
		return "{}"
	}
	data, err := sonic.MarshalIndent(input, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}

// templateFuncs provides helper functions available in templates.
var templateFuncs = template.FuncMap{
	"heading":   eventHeading,
	"toolInput": toolInputJSON,

	// formatTime formats a timestamp, returning "" for the zero time.
	// Example: {{formatTime .Timestamp "2006-01-02"}}
	"formatTime": func(t time.Time, layout string) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	},

	// truncate limits string length.
	// Example: {{truncate .Content 100}}
	"truncate": func(s string, maxLen int) string {
		if len(s) <= maxLen {
			return s
		}
		return s[:maxLen] + "..."
	},

	// lineCount returns the number of lines in text.
	"lineCount": func(s string) int {
		if s == "" {
			return 0
		}
		return 1 + strings.Count(s, "\n")
	},

	// wordCount returns the approximate word count.
	"wordCount": func(s string) int {
		return len(strings.Fields(s))
	},
}

// DefaultTemplate returns the embedded transcript template.
func DefaultTemplate() (*template.Template, error) {
	return LoadEmbeddedTemplate("transcript.md.tmpl")
}

// LoadEmbeddedTemplate loads a template from the embedded filesystem.
func LoadEmbeddedTemplate(name string) (*template.Template, error) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	return tmpl, nil
}

// LoadTemplateFile loads a template from an external file path.
func LoadTemplateFile(path string) (*template.Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template file %s: %w", path, err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(templateFuncs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template file %s: %w", path, err)
	}
	return tmpl, nil
}

// ListEmbeddedTemplates returns names of all embedded templates.
func ListEmbeddedTemplates() ([]string, error) {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
