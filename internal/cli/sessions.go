// Package cli provides CLI output formatting utilities.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui"
)

// SessionsFormatter handles session listing output.
type SessionsFormatter struct {
	w io.Writer
}

// NewSessionsFormatter creates a new sessions formatter.
func NewSessionsFormatter(w io.Writer) *SessionsFormatter {
	return &SessionsFormatter{w: w}
}

// SessionListOptions configures session list output.
type SessionListOptions struct {
	SortBy     string // "time" or "name"
	Descending bool
	Template   string // Custom Go template
}

// ResolveSession resolves a user-provided query (ID, filename, suffix, or
// absolute path) into a known session from registered sources.
func ResolveSession(registry *retrace.StoreRegistry, projectID, query string) (*retrace.SessionMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("session query is required")
	}

	candidates, err := collectCandidateSessions(registry, projectID)
	if err != nil {
		return nil, err
	}

	// Absolute paths must resolve to a known session; arbitrary files on
	// disk are not sessions.
	if filepath.IsAbs(query) {
		clean := filepath.Clean(query)
		for _, s := range candidates {
			if filepath.Clean(s.FullPath) == clean {
				match := s
				return &match, nil
			}
		}
		return nil, fmt.Errorf("session not found in known sources: %s", query)
	}

	var matches []retrace.SessionMeta
	for _, s := range candidates {
		if sessionMatchesQuery(s, query) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("session not found: %s", query)
	case 1:
		return &matches[0], nil
	default:
		return nil, ambiguousSessionError(matches)
	}
}

// ambiguousSessionError lists the first few matching session paths.
func ambiguousSessionError(matches []retrace.SessionMeta) error {
	shown := min(len(matches), ambiguousLimit)

	var b strings.Builder
	b.WriteString("session query is ambiguous, matched multiple sessions:")
	for _, m := range matches[:shown] {
		b.WriteString("\n  - ")
		b.WriteString(m.FullPath)
	}
	if rest := len(matches) - shown; rest > 0 {
		fmt.Fprintf(&b, "\n  ... and %d more", rest)
	}
	return fmt.Errorf("%s", b.String())
}

func collectCandidateSessions(registry *retrace.StoreRegistry, projectID string) ([]retrace.SessionMeta, error) {
	if projectID != "" {
		return ListSessionsForProject(registry, projectID)
	}

	ctx := context.Background()
	var all []retrace.SessionMeta
	for _, store := range registry.All() {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			continue
		}
		for _, p := range projects {
			sessions, err := store.ListSessions(ctx, p.ID)
			if err != nil {
				continue
			}
			all = append(all, sessions...)
		}
	}
	return all, nil
}

func sessionMatchesQuery(meta retrace.SessionMeta, query string) bool {
	if meta.ID == query || filepath.Base(meta.FullPath) == query {
		return true
	}
	for _, suffix := range []string{query, query + ".jsonl", query + ".json"} {
		if strings.HasSuffix(meta.FullPath, suffix) {
			return true
		}
	}
	return false
}

// FormatList outputs sessions one per line (full path).
func (f *SessionsFormatter) FormatList(sessions []retrace.SessionMeta) error {
	for _, s := range sessions {
		fmt.Fprintln(f.w, s.FullPath)
	}
	return nil
}

// FormatJSON writes sessions as a JSON array.
func (f *SessionsFormatter) FormatJSON(sessions []retrace.SessionMeta) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(sessions)
}

// FormatTable writes sessions in aligned columns sized to the terminal.
// width is the terminal width in cells; non-positive falls back to 100.
func (f *SessionsFormatter) FormatTable(sessions []retrace.SessionMeta, width int) error {
	if width <= 0 {
		width = 100
	}

	const fixed = 16 + 2 + 6 + 2 + 6 + 2 // modified, source, events columns plus gaps
	promptWidth := max(width-fixed, 20)

	fmt.Fprintf(f.w, "%-16s  %-6s  %6s  %s\n", "MODIFIED", "SOURCE", "EVENTS", "FIRST PROMPT")
	for _, s := range sessions {
		prompt := s.FirstPrompt
		if prompt == "" {
			prompt = s.ID
		}
		prompt = strings.Join(strings.Fields(prompt), " ")
		// Cell-aware truncation keeps wide runes from overflowing the column.
		prompt = ansi.Truncate(prompt, promptWidth, "…")

		fmt.Fprintf(f.w, "%-16s  %-6s  %6d  %s\n",
			formatModified(s.ModifiedAt, "-"), s.Source, s.EventCount, prompt)
	}
	return nil
}

// SessionSummaryData is the template data for session summary.
type SessionSummaryData struct {
	Path      string
	SessionID string
	Summary   string
	Events    int
	Created   time.Time
	Modified  time.Time
	Branch    string
	Source    string
}

const defaultSessionSummaryTemplate = `{{range .}}{{.Path}}
  ID:       {{.SessionID}}
  Source:   {{.Source}}
  Events:   {{.Events}}
  Created:  {{.Created.Format "2006-01-02 15:04"}}
  Modified: {{.Modified.Format "2006-01-02 15:04"}}{{if .Branch}}
  Branch:   {{.Branch}}{{end}}{{if .Summary}}
  Summary:  {{.Summary}}{{end}}

{{end}}`

// SessionSummaryTemplateHelp documents the template variables.
const SessionSummaryTemplateHelp = `Template variables:
  {{.Path}}       Full path to session file
  {{.SessionID}}  Session identifier
  {{.Source}}     Source type (claude, codex)
  {{.Summary}}    First prompt summary (if available)
  {{.Events}}     Number of events in the transcript
  {{.Created}}    Creation time (time.Time)
  {{.Modified}}   Last modified time (time.Time)
  {{.Branch}}     Git branch (if available)`

// FormatSummary outputs detailed session information.
func (f *SessionsFormatter) FormatSummary(sessions []retrace.SessionMeta, customTmpl string, opts SessionListOptions) error {
	sortSessions(sessions, opts.SortBy, opts.Descending)

	data := make([]SessionSummaryData, len(sessions))
	for i, s := range sessions {
		data[i] = SessionSummaryData{
			Path:      s.FullPath,
			SessionID: s.ID,
			Summary:   s.FirstPrompt,
			Events:    s.EventCount,
			Created:   s.CreatedAt,
			Modified:  s.ModifiedAt,
			Branch:    s.GitBranch,
			Source:    string(s.Source),
		}
	}

	tmplStr := defaultSessionSummaryTemplate
	if customTmpl != "" {
		tmplStr = customTmpl
	}

	tmpl, err := template.New("sessions").Parse(tmplStr)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	return tmpl.Execute(f.w, data)
}

func sortSessions(sessions []retrace.SessionMeta, sortBy string, descending bool) {
	var less func(a, b retrace.SessionMeta) bool
	switch sortBy {
	case "name":
		less = func(a, b retrace.SessionMeta) bool {
			return strings.ToLower(a.ID) < strings.ToLower(b.ID)
		}
	case "time", "":
		less = func(a, b retrace.SessionMeta) bool {
			return a.ModifiedAt.Before(b.ModifiedAt)
		}
	default:
		return
	}

	sort.Slice(sessions, func(i, j int) bool {
		if descending {
			return less(sessions[j], sessions[i])
		}
		return less(sessions[i], sessions[j])
	})
}

// ListSessionsForProject lists sessions for a given project using the registry.
func ListSessionsForProject(registry *retrace.StoreRegistry, projectID string) ([]retrace.SessionMeta, error) {
	ctx := context.Background()

	projects, err := registry.ListAllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var target *retrace.Project
	for i := range projects {
		if projects[i].ID == projectID || projects[i].Path == projectID {
			target = &projects[i]
			break
		}
	}

	if target == nil {
		return nil, fmt.Errorf("project not found: %s\n\nUse 'retrace projects' to list available projects", projectID)
	}

	store, ok := registry.Get(target.Source)
	if !ok {
		return nil, fmt.Errorf("source not available: %s", target.Source)
	}

	return store.ListSessions(ctx, target.ID)
}

// resolveScopedSession resolves a session query, appending a hint about the
// sessions listing when nothing matched.
func resolveScopedSession(registry *retrace.StoreRegistry, project, query string) (*retrace.SessionMeta, error) {
	meta, err := ResolveSession(registry, project, query)
	if err == nil {
		return meta, nil
	}
	if project != "" {
		return nil, fmt.Errorf("%w\n\nUse 'retrace sessions list -p %s' to see available sessions", err, project)
	}
	return nil, fmt.Errorf("%w\n\nUse 'retrace sessions list' to find valid sessions", err)
}

// SessionDeleter handles session deletion.
type SessionDeleter struct {
	registry *retrace.StoreRegistry
	opts     SessionDeleteOptions
}

// SessionDeleteOptions configures session deletion.
type SessionDeleteOptions struct {
	Force   bool
	Stdout  io.Writer
	Project string // Project path to scope the session search
}

// NewSessionDeleter creates a new session deleter.
func NewSessionDeleter(registry *retrace.StoreRegistry, opts SessionDeleteOptions) *SessionDeleter {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &SessionDeleter{registry: registry, opts: opts}
}

// Delete removes a session file after confirmation.
func (d *SessionDeleter) Delete(sessionQuery string) error {
	session, err := resolveScopedSession(d.registry, d.opts.Project, sessionQuery)
	if err != nil {
		return err
	}

	if !d.opts.Force {
		printSessionInfo(d.opts.Stdout, session)

		result, err := tui.Confirm(tui.ConfirmOptions{
			Prompt:      "Permanently delete this session?",
			Affirmative: "Delete",
			Negative:    "Cancel",
			Default:     false,
		})
		if err != nil || result != tui.ConfirmYes {
			fmt.Fprintf(d.opts.Stdout, "Cancelled.\n")
			return nil
		}
	}

	if err := os.Remove(session.FullPath); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	fmt.Fprintf(d.opts.Stdout, "Deleted %s\n", session.FullPath)
	return nil
}

// printSessionInfo writes the session details shown before a destructive
// confirmation prompt.
func printSessionInfo(w io.Writer, session *retrace.SessionMeta) {
	fmt.Fprintf(w, "Session: %s\n", session.FullPath)
	fmt.Fprintf(w, "ID: %s\n", session.ID)
	fmt.Fprintf(w, "Source: %s\n", session.Source)
	fmt.Fprintf(w, "Events: %d\n", session.EventCount)
	if !session.ModifiedAt.IsZero() {
		fmt.Fprintf(w, "Modified: %s\n", session.ModifiedAt.Format(timestampLayout))
	}
	if session.FirstPrompt != "" {
		fmt.Fprintf(w, "Summary: %s\n", retrace.TruncateString(session.FirstPrompt, 100))
	}
	fmt.Fprintln(w)
}

// SessionCopier handles session copying.
type SessionCopier struct {
	registry *retrace.StoreRegistry
	opts     SessionCopyOptions
}

// SessionCopyOptions configures session copying.
type SessionCopyOptions struct {
	Stdout  io.Writer
	Project string // Project path to scope the session search
}

// NewSessionCopier creates a new session copier.
func NewSessionCopier(registry *retrace.StoreRegistry, opts SessionCopyOptions) *SessionCopier {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &SessionCopier{registry: registry, opts: opts}
}

// Copy copies a session file to the target path. A target without an
// extension is treated as a directory and created if needed; the session
// keeps its original filename inside it.
func (c *SessionCopier) Copy(sessionQuery, targetPath string) error {
	session, err := resolveScopedSession(c.registry, c.opts.Project, sessionQuery)
	if err != nil {
		return err
	}

	targetFile := targetPath
	if info, err := os.Stat(targetPath); err == nil && info.IsDir() {
		targetFile = filepath.Join(targetPath, filepath.Base(session.FullPath))
	} else if filepath.Ext(targetPath) == "" {
		if err := os.MkdirAll(targetPath, 0755); err != nil {
			return fmt.Errorf("create target directory: %w", err)
		}
		targetFile = filepath.Join(targetPath, filepath.Base(session.FullPath))
	}

	if err := os.MkdirAll(filepath.Dir(targetFile), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	if err := copyFile(session.FullPath, targetFile); err != nil {
		return fmt.Errorf("copy session: %w", err)
	}

	fmt.Fprintf(c.opts.Stdout, "Copied %s to %s\n", session.FullPath, targetFile)
	return nil
}
