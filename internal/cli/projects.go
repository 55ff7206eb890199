// Package cli provides CLI output formatting utilities.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

// DefaultSummaryTemplate is the default template for project summaries.
const DefaultSummaryTemplate = `{{range .}}{{.Path}}
  Source: {{.Source}}
  Sessions: {{.SessionCount}}
{{- if .Modified}}
  Modified: {{.Modified}}
{{- end}}
{{- if .Sessions}}
  Session List:
  {{- range .Sessions}}
    - {{.Name}} ({{.EventCount}} events)
  {{- end}}
{{- end}}
{{end}}`

// SummaryTemplateHelp documents the template variables available.
const SummaryTemplateHelp = `Template Variables
==================

Each project in the list has:
  .Path          string  - Full project path (or "~" for home)
  .DisplayName   string  - Short name (last path component)
  .SessionCount  int     - Number of sessions
  .Modified      string  - Last modified time (may be empty)
  .ProjectID     string  - Project identifier within its source
  .Source        string  - Source type (claude, codex)
  .Sessions      []SessionSummary - Session details (with --with-sessions flag)

Each SessionSummary has:
  .ID            string  - Session ID
  .Name          string  - First prompt or session ID
  .EventCount    int     - Number of events in the transcript
  .Modified      string  - Last modified time
  .GitBranch     string  - Git branch (if any)

Example custom template:
  {{range .}}{{.DisplayName}}: {{.SessionCount}} sessions
  {{end}}`

// timestampLayout is the display format for modification times.
const timestampLayout = "2006-01-02 15:04"

// SummaryOptions configures summary output formatting.
type SummaryOptions struct {
	SortBy     string // "name" or "time"
	Descending bool   // sort order
}

// ProjectSummary holds template-friendly project data.
type ProjectSummary struct {
	Path         string
	DisplayName  string
	SessionCount int
	Modified     string
	ProjectID    string
	Source       string
	Sessions     []SessionSummary // Only populated when with-sessions flag is used
}

// SessionSummary holds template-friendly session data.
type SessionSummary struct {
	ID         string
	Name       string // First prompt or ID
	EventCount int
	Modified   string
	GitBranch  string
}

// ProjectsFormatter formats project listings for CLI output.
type ProjectsFormatter struct {
	w io.Writer
}

// NewProjectsFormatter creates a new projects formatter.
func NewProjectsFormatter(w io.Writer) *ProjectsFormatter {
	return &ProjectsFormatter{w: w}
}

// FormatShort writes project paths, one per line.
func (f *ProjectsFormatter) FormatShort(projects []retrace.Project) error {
	for _, p := range projects {
		fmt.Fprintln(f.w, displayPath(p))
	}
	return nil
}

// FormatVerbose writes project paths with source and metadata in aligned columns.
func (f *ProjectsFormatter) FormatVerbose(projects []retrace.Project) error {
	w := tabwriter.NewWriter(f.w, 0, 0, 2, ' ', 0)
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t[%s]\t%d sessions\t%s\n",
			displayPath(p), p.Source, p.SessionCount, formatModified(p.LastModified, "-"))
	}
	return w.Flush()
}

// FormatJSON writes projects as a JSON array.
func (f *ProjectsFormatter) FormatJSON(projects []retrace.Project) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(projects)
}

// FormatTree writes projects in a tree view grouped by source, then parent
// directory. basePaths maps each source to its storage root, shown next to
// the source label.
func (f *ProjectsFormatter) FormatTree(projects []retrace.Project, basePaths map[retrace.Source]string) error {
	bySource := groupBySource(projects)

	for _, source := range sortedSourceKeys(bySource) {
		label := string(source)
		if base := tildePath(basePaths[source]); base != "" {
			label = fmt.Sprintf("%s (%s)", source, base)
		}
		fmt.Fprintln(f.w, label)

		groups := groupByParent(bySource[source])
		parents := sortedKeys(groups)

		for i, parent := range parents {
			lastParent := i == len(parents)-1
			branch, childIndent := treeConnector(lastParent)
			fmt.Fprintf(f.w, "%s%s/\n", branch, parent)

			projs := groups[parent]
			for j, p := range projs {
				branch, _ := treeConnector(j == len(projs)-1)
				fmt.Fprintf(f.w, "%s%s%s (%d)\n", childIndent, branch, p.Name, p.SessionCount)
			}
		}
	}

	return nil
}

// treeConnector returns the branch glyph for an entry and the indent its
// children continue under.
func treeConnector(last bool) (branch, childIndent string) {
	if last {
		return "└── ", "    "
	}
	return "├── ", "│   "
}

// FormatSummary writes detailed project information using a template.
// If tmplStr is empty, uses DefaultSummaryTemplate.
// If projectSessions is provided, session details are included in the summary.
func (f *ProjectsFormatter) FormatSummary(projects []retrace.Project, projectSessions map[string][]retrace.SessionMeta, tmplStr string, opts SummaryOptions) error {
	if tmplStr == "" {
		tmplStr = DefaultSummaryTemplate
	}

	tmpl, err := template.New("summary").Parse(tmplStr)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	sortProjects(projects, opts)

	summaries := make([]ProjectSummary, len(projects))
	for i, p := range projects {
		summaries[i] = summarizeProject(p, projectSessions[p.ID])
	}

	return tmpl.Execute(f.w, summaries)
}

func summarizeProject(p retrace.Project, sessions []retrace.SessionMeta) ProjectSummary {
	summary := ProjectSummary{
		Path:         displayPath(p),
		DisplayName:  p.Name,
		SessionCount: p.SessionCount,
		Modified:     formatModified(p.LastModified, ""),
		ProjectID:    p.ID,
		Source:       string(p.Source),
	}
	for _, s := range sessions {
		summary.Sessions = append(summary.Sessions, summarizeSession(s))
	}
	return summary
}

func summarizeSession(s retrace.SessionMeta) SessionSummary {
	name := s.FirstPrompt
	if name == "" {
		name = s.ID
	}
	return SessionSummary{
		ID:         s.ID,
		Name:       retrace.TruncateString(name, 50),
		EventCount: s.EventCount,
		Modified:   formatModified(s.ModifiedAt, ""),
		GitBranch:  s.GitBranch,
	}
}

// displayPath returns the project path for display, substituting "~" for
// projects recorded against the home directory.
func displayPath(p retrace.Project) string {
	if p.Path == "" {
		return "~"
	}
	return p.Path
}

// formatModified renders a modification time, or fallback for the zero time.
func formatModified(t time.Time, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return t.Format(timestampLayout)
}

// sortProjects sorts projects based on options.
func sortProjects(projects []retrace.Project, opts SummaryOptions) {
	var less func(a, b retrace.Project) bool
	switch opts.SortBy {
	case "name":
		less = func(a, b retrace.Project) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case "time", "":
		less = func(a, b retrace.Project) bool {
			return a.LastModified.Before(b.LastModified)
		}
	default:
		return
	}

	sort.Slice(projects, func(i, j int) bool {
		if opts.Descending {
			return less(projects[j], projects[i])
		}
		return less(projects[i], projects[j])
	})
}

// groupByParent groups projects by their parent directory.
func groupByParent(projects []retrace.Project) map[string][]retrace.Project {
	groups := make(map[string][]retrace.Project)
	for _, p := range projects {
		parent := filepath.Dir(displayPath(p))
		if parent == "." {
			parent = "~"
		}
		groups[parent] = append(groups[parent], p)
	}
	return groups
}

// sortedKeys returns the keys of a map sorted alphabetically.
func sortedKeys(m map[string][]retrace.Project) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// groupBySource groups projects by their source.
func groupBySource(projects []retrace.Project) map[retrace.Source][]retrace.Project {
	groups := make(map[retrace.Source][]retrace.Project)
	for _, p := range projects {
		groups[p.Source] = append(groups[p.Source], p)
	}
	return groups
}

// sortedSourceKeys returns source keys sorted alphabetically.
func sortedSourceKeys(m map[retrace.Source][]retrace.Project) []retrace.Source {
	keys := make([]retrace.Source, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// tildePath replaces the home directory prefix with ~ for display.
func tildePath(path string) string {
	if path == "" {
		return ""
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}
