package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/cli"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui"
	"github.com/retracehq/retrace/internal/tuilog"
)

// Sessions command flags
var (
	sessionProject     string
	sessionForcePicker bool     // --pick flag to force project picker
	sessionSources     []string // --source flag for sessions
	sessionForceDelete bool
	sessionSortBy      string
	sessionSortDesc    bool
	sessionTemplate    string
	sessionResolveJSON bool
	sessionJSON        bool // --json flag for JSON output
	sessionShort       bool // --short flag for one-line-per-session output
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "View and manage sessions across all sources",
	Long: `View and manage sessions from all discovered sources.

Running without a subcommand launches the interactive session viewer.

Project selection:
  - In a project directory: automatically uses that project
  - Otherwise: shows interactive project picker
  - -p/--project <path>: use specified project
  - --pick: force picker even if in a project directory

Use --source to filter by source (claude or codex).

Examples:
  retrace sessions                   # Interactive viewer (same as view)
  retrace sessions view              # Interactive picker
  retrace sessions list              # Auto-detect or picker
  retrace sessions list --pick       # Force project picker
  retrace sessions list -p ./myproject
  retrace sessions summary -p ./myproject --source codex
  retrace sessions delete -p ./myproject <session-id>
  retrace sessions copy -p ./myproject <session-id> ./backup`,
	RunE: runSessionsView,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions (auto-detects project from cwd)",
	Long: `List all sessions in a project.

By default, output is a table sized to the terminal width. Use --short
for one line per session, or --json for JSON output.

Project selection:
  - In a project directory: automatically uses that project
  - Otherwise: shows interactive project picker
  - -p/--project <path>: use specified project
  - --pick: force picker even if in a project directory

Examples:
  retrace sessions list              # Auto-detect from cwd or picker
  retrace sessions list --pick       # Force project picker
  retrace sessions list -p ./myproject
  retrace sessions list --source codex
  retrace sessions list --json       # JSON output`,
	RunE: runSessionsList,
}

var sessionsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show detailed session summary",
	Long: `Show detailed information about each session in a project.

Sorting:
  --sort name|time    Sort by session name or modified time (default: time)
  --desc              Sort descending (default for time)
  --asc               Sort ascending (default for name)

Output can be customized with a Go text/template via --template.

` + cli.SessionSummaryTemplateHelp,
	RunE: runSessionsSummary,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session>",
	Short: "Delete a session",
	Long: `Delete a session file from a known source.

The session can be specified as:
  - Full path to a known session file
  - Session ID (requires -p/--project)
  - Filename (requires -p/--project)

Before deletion, shows session info and prompts for confirmation.
Use --force to skip the confirmation.

Examples:
  retrace sessions delete /full/path/to/session
  retrace sessions delete -p ./myproject abc123
  retrace sessions delete -p ./myproject --force abc123`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsDelete,
}

var sessionsCopyCmd = &cobra.Command{
	Use:   "copy <session> <target>",
	Short: "Copy a session to a target location",
	Long: `Copy a known session file to a target location.

The session can be specified as:
  - Full path to a known session file
  - Session ID (requires -p/--project)
  - Filename (requires -p/--project)

The target can be a file path or directory.

Examples:
  retrace sessions copy /full/path/to/session ./backup/
  retrace sessions copy -p ./myproject abc123 ./backup/
  retrace sessions copy -p ./myproject abc123 ./backup/renamed-session`,
	Args: cobra.ExactArgs(2),
	RunE: runSessionsCopy,
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view [session]",
	Short: "View a session timeline in the terminal",
	Long: `View a session as a scrolling timeline in a full-terminal viewer.

If no session is specified, shows an interactive picker of the
project's sessions. Selecting a session opens its timeline; esc
returns to the picker.

The session can be specified as:
  - Full path to a known session file
  - Session ID (requires -p/--project or a detectable cwd project)
  - Filename (requires -p/--project or a detectable cwd project)

For non-interactive text output, use 'retrace export -f plain --stdout'.

Examples:
  retrace sessions view              # Interactive picker
  retrace sessions view /full/path/to/session
  retrace sessions view -p ./myproject abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionsView,
}

var sessionsResolveCmd = &cobra.Command{
	Use:   "resolve <session>",
	Short: "Resolve a session query to its canonical path",
	Long: `Resolve a session query (ID, filename suffix, or absolute path)
to a known session from registered sources.

By default, outputs only the canonical full path.
Use --json for structured output.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsResolve,
}

func init() {
	// Project selection:
	// - No flags: auto-detect from cwd, fallback to picker
	// - --pick: force picker even if in a project directory
	// - -p <path>: use specified path
	sessionsCmd.PersistentFlags().StringVarP(&sessionProject, "project", "p", "", "project path (auto-detects from cwd if not set)")
	sessionsCmd.PersistentFlags().BoolVar(&sessionForcePicker, "pick", false, "force project picker even if in a known project directory")
	sessionsCmd.PersistentFlags().StringArrayVarP(&sessionSources, "source", "s", nil, "filter by source (claude|codex, can be specified multiple times)")

	sessionsListCmd.Flags().BoolVar(&sessionJSON, "json", false, "output in JSON format")
	sessionsListCmd.Flags().BoolVar(&sessionShort, "short", false, "one line per session")

	sessionsSummaryCmd.Flags().StringVar(&sessionTemplate, "template", "", "custom Go text/template for output")
	sessionsSummaryCmd.Flags().StringVar(&sessionSortBy, "sort", "time", "sort by: name, time")
	sessionsSummaryCmd.Flags().BoolVar(&sessionSortDesc, "desc", false, "sort descending (default for time)")
	sessionsSummaryCmd.Flags().Bool("asc", false, "sort ascending (default for name)")

	sessionsDeleteCmd.Flags().BoolVarP(&sessionForceDelete, "force", "f", false, "skip confirmation prompt")

	sessionsResolveCmd.Flags().BoolVar(&sessionResolveJSON, "json", false, "output in JSON format")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsSummaryCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsCopyCmd)
	sessionsCmd.AddCommand(sessionsViewCmd)
	sessionsCmd.AddCommand(sessionsResolveCmd)

	rootCmd.AddCommand(sessionsCmd)
}

// logSelectedProject prints the resolved project to stderr when -v is set.
func logSelectedProject() {
	if verbose && sessionProject != "" {
		fmt.Fprintf(os.Stderr, "project: %s\n", sessionProject)
	}
}

// selectSessionProject fills sessionProject from the cwd or the project
// picker when no -p flag was given. Returns false if the user cancelled or
// no project could be determined (with output already written).
func selectSessionProject(registry *retrace.StoreRegistry, interactive bool) (bool, error) {
	ctx := context.Background()

	// If no project specified and not forcing picker, try auto-detection
	// from cwd
	if sessionProject == "" && !sessionForcePicker {
		cwd, err := os.Getwd()
		if err == nil {
			if project := registry.FindProjectForPath(ctx, cwd); project != nil {
				sessionProject = project.ID
			}
		}
	}

	// If still no project (no match or forcing picker), show project picker
	if sessionProject == "" {
		if !interactive {
			return false, fmt.Errorf("no project detected\n\nUse -p <path> to specify a project, or run from within a project directory")
		}

		projects, err := GetProjectsFromSources(registry, sessionSources)
		if err != nil {
			return false, err
		}

		if len(projects) == 0 {
			if len(sessionSources) > 0 {
				fmt.Printf("No projects found from sources: %v\n", sessionSources)
			} else {
				fmt.Println("No projects found")
			}
			return false, nil
		}

		// Check if TTY is available for picker
		if !isTTY() {
			return false, fmt.Errorf("--project/-p is required when no TTY available\n\nUse 'retrace projects list' to see available projects")
		}

		selected, err := tui.PickProject(projects)
		if err != nil {
			return false, err
		}
		if selected == nil {
			return false, nil // User cancelled
		}
		sessionProject = selected.ID
	}

	logSelectedProject()
	return true, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()

	// --json implies non-interactive mode; never show TUI
	ok, err := selectSessionProject(registry, !sessionJSON)
	if err != nil || !ok {
		return err
	}

	sessions, err := GetSessionsForProject(registry, sessionProject, sessionSources)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	formatter := cli.NewSessionsFormatter(os.Stdout)

	if sessionJSON {
		return formatter.FormatJSON(sessions)
	}

	if sessionShort || !term.IsTerminal(int(os.Stdout.Fd())) {
		return formatter.FormatList(sessions)
	}

	width := 0
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	return formatter.FormatTable(sessions, width)
}

func runSessionsSummary(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()

	ok, err := selectSessionProject(registry, true)
	if err != nil || !ok {
		return err
	}

	sessions, err := GetSessionsForProject(registry, sessionProject, sessionSources)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	// Determine sort order
	ascFlag, _ := cmd.Flags().GetBool("asc")
	descending := sessionSortDesc || (!ascFlag && sessionSortBy == "time")

	formatter := cli.NewSessionsFormatter(os.Stdout)
	return formatter.FormatSummary(sessions, sessionTemplate, cli.SessionListOptions{
		SortBy:     sessionSortBy,
		Descending: descending,
	})
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	ctx := context.Background()

	// If no project specified and not an absolute path, try auto-detection
	// from cwd
	if sessionProject == "" && !filepath.IsAbs(args[0]) {
		cwd, err := os.Getwd()
		if err == nil {
			if project := registry.FindProjectForPath(ctx, cwd); project != nil {
				sessionProject = project.ID
			}
		}
	}

	logSelectedProject()

	deleter := cli.NewSessionDeleter(registry, cli.SessionDeleteOptions{
		Force:   sessionForceDelete,
		Project: sessionProject,
	})
	return deleter.Delete(args[0])
}

func runSessionsCopy(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	ctx := context.Background()

	// If no project specified and not an absolute path, try auto-detection
	// from cwd
	if sessionProject == "" && !filepath.IsAbs(args[0]) {
		cwd, err := os.Getwd()
		if err == nil {
			if project := registry.FindProjectForPath(ctx, cwd); project != nil {
				sessionProject = project.ID
			}
		}
	}

	logSelectedProject()

	copier := cli.NewSessionCopier(registry, cli.SessionCopyOptions{
		Project: sessionProject,
	})
	return copier.Copy(args[0], args[1])
}

func runSessionsView(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	ctx := context.Background()

	if err := initTUILog(); err != nil {
		return err
	}
	defer tuilog.Log.Close()

	marks, err := bookmarks.NewManager()
	if err != nil {
		return fmt.Errorf("load bookmarks: %w", err)
	}
	defer marks.Close()

	// A session argument opens its timeline directly.
	if len(args) > 0 {
		scope := sessionProject
		if scope == "" && !filepath.IsAbs(args[0]) {
			cwd, err := os.Getwd()
			if err == nil {
				if project := registry.FindProjectForPath(ctx, cwd); project != nil {
					scope = project.ID
				}
			}
		}
		meta, err := cli.ResolveSession(registry, scope, args[0])
		if err != nil {
			return err
		}
		return tui.RunSession(registry, *meta, marks)
	}

	ok, err := selectSessionProject(registry, true)
	if err != nil || !ok {
		return err
	}

	sessions, err := GetSessionsForProject(registry, sessionProject, sessionSources)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found in project\n\nUse 'retrace sessions list -p %s' to verify", sessionProject)
	}

	if !isTTY() {
		return fmt.Errorf("no session specified and no TTY available\n\nUsage: retrace sessions view -p <project> <session>\n\nUse 'retrace sessions list -p %s' to see available sessions", sessionProject)
	}

	// Most recent first in the picker
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ModifiedAt.After(sessions[j].ModifiedAt)
	})

	return tui.RunSessionBrowser(registry, sessions, marks)
}

func runSessionsResolve(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	ctx := context.Background()

	// If no project specified and query is not absolute, try auto-detection
	// from cwd.
	if sessionProject == "" && !filepath.IsAbs(args[0]) {
		cwd, err := os.Getwd()
		if err == nil {
			if project := registry.FindProjectForPath(ctx, cwd); project != nil {
				sessionProject = project.ID
			}
		}
	}

	meta, err := cli.ResolveSession(registry, sessionProject, args[0])
	if err != nil {
		return err
	}

	if sessionResolveJSON {
		out := struct {
			ID         string         `json:"id"`
			FullPath   string         `json:"full_path"`
			Project    string         `json:"project_path,omitempty"`
			Source     retrace.Source `json:"source"`
			EventCount int            `json:"event_count,omitempty"`
			ModifiedAt string         `json:"modified_at,omitempty"`
		}{
			ID:         meta.ID,
			FullPath:   meta.FullPath,
			Project:    meta.ProjectPath,
			Source:     meta.Source,
			EventCount: meta.EventCount,
		}
		if !meta.ModifiedAt.IsZero() {
			out.ModifiedAt = meta.ModifiedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Fprintln(os.Stdout, meta.FullPath)
	return nil
}
