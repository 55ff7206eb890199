package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/cli"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui"
	"github.com/retracehq/retrace/internal/tuilog"
)

// Projects command flags
var (
	summaryTemplate string
	sortBy          string
	sortDesc        bool
	projectSources  []string // --source flag (can be specified multiple times)
	withSessions    bool     // --with-sessions flag for summary
	shortFormat     bool     // --short flag for path-only output
	jsonFormat      bool     // --json flag for JSON output
	forceDelete     bool     // --force flag for delete
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage and view projects",
	Long: `Manage and view projects from available sources (Claude Code, Codex CLI).

By default, this command launches the interactive project browser (TUI).
Use subcommands to list, summarize, or manage projects via CLI.

Examples:
  retrace projects                      # Launch interactive browser (default)
  retrace projects list                 # List detailed columns
  retrace projects list --short         # List paths only
  retrace projects summary              # Detailed summary with session names
  retrace projects tree                 # Tree view grouped by source`,
	RunE: runProjectsView, // Default to interactive view
}

var projectsViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Interactive project browser",
	Long: `Launch the interactive TUI project browser.
This allows you to navigate projects and select sessions to view.`,
	RunE: runProjectsView,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects from all sources",
	Long: `List all projects from available sources (Claude Code, Codex CLI).

By default, shows detailed columns (path, source, sessions, modified time).
Use --short for a compact list of project paths only.
Use --json for JSON output.

Examples:
  retrace projects list                 # Detailed columns
  retrace projects list --short         # Paths only, one per line
  retrace projects list --json          # JSON output
  retrace projects list --source codex  # Only Codex projects`,
	RunE: runProjectsList,
}

var projectsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show detailed project summary",
	Long: `Show detailed information about each project including
session count and last modified time.

Sorting:
  --sort name|time    Sort by project name or modified time (default: time)
  --desc              Sort descending (default for time)
  --asc               Sort ascending (default for name)

Output can be customized with a Go text/template via --template.

` + cli.SummaryTemplateHelp,
	RunE: runProjectsSummary,
}

var projectsTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show projects in a tree view",
	Long:  `Show projects grouped by source and parent directory in a tree layout.`,
	RunE:  runProjectsTree,
}

var projectsCopyCmd = &cobra.Command{
	Use:   "copy <project> <target-dir>",
	Short: "Copy project sessions to a target directory",
	Long: `Copy all session files from a project to a target directory.

The project can be:
  - Full project path (e.g., /home/user/myproject)
  - Path relative to current directory
  - Project name or path suffix (e.g., work/myproject)

The target directory will be created if it doesn't exist.

Examples:
  retrace projects copy /home/user/myproject ./backup
  retrace projects copy myproject /tmp/export`,
	Args: cobra.ExactArgs(2),
	RunE: runProjectsCopy,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete all session files for a project",
	Long: `Delete all recorded session files for a project.

The project can be a project ID, full path, or path suffix. Before
deletion, shows project info and prompts for confirmation. Use --force
to skip the confirmation.

This removes the recorded transcripts only; the project directory
itself is not touched.

Examples:
  retrace projects delete /home/user/myproject
  retrace projects delete --force myproject`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectsDelete,
}

func init() {
	// Root flags (persistent across all subcommands)
	projectsCmd.PersistentFlags().StringArrayVarP(&projectSources, "source", "s", nil, "source to include (claude|codex, can be specified multiple times, default: all)")

	// List command flags
	projectsListCmd.Flags().BoolVar(&shortFormat, "short", false, "show project paths only")
	projectsListCmd.Flags().BoolVar(&jsonFormat, "json", false, "output in JSON format")

	// Summary command flags
	projectsSummaryCmd.Flags().StringVar(&summaryTemplate, "template", "", "custom Go text/template for output")
	projectsSummaryCmd.Flags().StringVar(&sortBy, "sort", "time", "sort by: name, time")
	projectsSummaryCmd.Flags().BoolVar(&sortDesc, "desc", false, "sort descending (default for time)")
	projectsSummaryCmd.Flags().Bool("asc", false, "sort ascending (default for name)")
	projectsSummaryCmd.Flags().BoolVar(&withSessions, "with-sessions", false, "include session names in output")

	// Delete command flags
	projectsDeleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "skip confirmation prompt")

	// Register subcommands
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsViewCmd)
	projectsCmd.AddCommand(projectsSummaryCmd)
	projectsCmd.AddCommand(projectsTreeCmd)
	projectsCmd.AddCommand(projectsCopyCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)

	rootCmd.AddCommand(projectsCmd)
}

func runProjectsView(cmd *cobra.Command, args []string) error {
	if err := initTUILog(); err != nil {
		return err
	}
	defer tuilog.Log.Close()

	tuilog.Log.Info("Starting projects TUI")

	marks, err := bookmarks.NewManager()
	if err != nil {
		return fmt.Errorf("load bookmarks: %w", err)
	}
	defer marks.Close()

	// Force the projects page
	shell := tui.NewShell(tui.InitialPageProjects, marks)
	p := tea.NewProgram(shell, termSizeOptions()...)
	_, err = p.Run()

	tuilog.Log.Info("Projects TUI exited", "error", err)
	return err
}

// loadSelectedProjects fetches projects from the sources named on the
// command line. An empty result prints a notice and is not an error.
func loadSelectedProjects(registry *retrace.StoreRegistry) ([]retrace.Project, error) {
	projects, err := GetProjectsFromSources(registry, projectSources)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		if len(projectSources) > 0 {
			fmt.Printf("No projects found from sources: %v\n", projectSources)
		} else {
			fmt.Println("No projects found")
		}
		return nil, nil
	}
	return projects, nil
}

// sortByPath orders projects by path for stable listing output.
func sortByPath(projects []retrace.Project) {
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Path < projects[j].Path
	})
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	projects, err := loadSelectedProjects(CreateSourceRegistry())
	if err != nil || len(projects) == 0 {
		return err
	}
	sortByPath(projects)

	formatter := cli.NewProjectsFormatter(os.Stdout)
	switch {
	case jsonFormat:
		return formatter.FormatJSON(projects)
	case shortFormat:
		return formatter.FormatShort(projects)
	default:
		return formatter.FormatVerbose(projects)
	}
}

func runProjectsTree(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	projects, err := loadSelectedProjects(registry)
	if err != nil || len(projects) == 0 {
		return err
	}
	sortByPath(projects)

	// Label each source group with its storage root, tilde-shortened.
	home, _ := os.UserHomeDir()
	basePaths := make(map[retrace.Source]string)
	for _, store := range registry.All() {
		bp := store.BasePath()
		if home != "" && strings.HasPrefix(bp, home) {
			bp = "~" + strings.TrimPrefix(bp, home)
		}
		basePaths[store.Source()] = bp
	}

	return cli.NewProjectsFormatter(os.Stdout).FormatTree(projects, basePaths)
}

func runProjectsSummary(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	projects, err := loadSelectedProjects(registry)
	if err != nil || len(projects) == 0 {
		return err
	}

	ascFlag, _ := cmd.Flags().GetBool("asc")
	descending := sortDesc || (!ascFlag && sortBy == "time") // time defaults to desc

	var projectSessions map[string][]retrace.SessionMeta
	if withSessions {
		projectSessions = make(map[string][]retrace.SessionMeta)
		ctx := context.Background()
		for _, p := range projects {
			store, ok := registry.Get(p.Source)
			if !ok {
				continue
			}
			sessions, err := store.ListSessions(ctx, p.ID)
			if err != nil {
				continue
			}
			projectSessions[p.ID] = sessions
		}
	}

	return cli.NewProjectsFormatter(os.Stdout).FormatSummary(projects, projectSessions, summaryTemplate, cli.SummaryOptions{
		SortBy:     sortBy,
		Descending: descending,
	})
}

func runProjectsCopy(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	copier := cli.NewProjectCopier(registry, cli.CopyOptions{})
	return copier.Copy(args[0], args[1])
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	registry := CreateSourceRegistry()
	deleter := cli.NewProjectDeleter(registry, cli.DeleteOptions{Force: forceDelete})
	return deleter.Delete(args[0])
}
