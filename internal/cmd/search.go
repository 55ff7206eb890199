package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/index"
	"github.com/retracehq/retrace/internal/tui"
)

// Search command flags
var (
	searchProject    string
	searchSource     string
	searchLimit      int
	searchPerSession int
	searchRegex      bool
	searchCaseSens   bool
	searchJSON       bool
	searchDBPath     string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed session content",
	Long: `Search the full text of indexed sessions.

Matches prompts, responses, thinking blocks, and tool output across all
indexed sources. Results are grouped per session, newest session first,
with a short preview per match.

The search runs against the catalog built by 'retrace index'; run that
first (or with --watch to keep it current).

Plain queries match literally and case-insensitively. Use --regex for
Go regular expression syntax and --case-sensitive for exact case.

Without a query, in a terminal, prompts for one and opens the selected
result's timeline.

Examples:
  retrace search "pagination bug"
  retrace search -p myproject "TODO"
  retrace search --source codex --limit 10 "panic"
  retrace search --regex 'retr(y|ies)'
  retrace search --json "flaky test"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "filter by project name substring")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "filter by source (claude|codex)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum total matches (default 50)")
	searchCmd.Flags().IntVar(&searchPerSession, "per-session", 0, "maximum matches per session (default 2)")
	searchCmd.Flags().BoolVar(&searchRegex, "regex", false, "treat the query as a regular expression")
	searchCmd.Flags().BoolVar(&searchCaseSens, "case-sensitive", false, "match case exactly")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output in JSON format")
	searchCmd.Flags().StringVar(&searchDBPath, "index", "", "catalog database path (default: ~/.retrace/index.duckdb)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if !isTTY() {
			return fmt.Errorf("query required (interactive search needs a terminal)")
		}
		return runSearchInteractive()
	}

	dbPath := searchDBPath
	if dbPath == "" {
		p, err := index.DefaultPath()
		if err != nil {
			return err
		}
		dbPath = p
	}

	db, err := index.OpenReadOnly(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := searchOptionsFromFlags()
	opts.Query = args[0]

	results, total, err := index.NewService(db).Search(context.Background(), opts)
	if err != nil {
		return err
	}

	if searchJSON {
		out := struct {
			Query   string                `json:"query"`
			Total   int                   `json:"total"`
			Results []index.SessionResult `json:"results"`
		}{Query: args[0], Total: total, Results: results}
		if out.Results == nil {
			out.Results = []index.SessionResult{}
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	if len(results) == 0 {
		fmt.Println("No matches found")
		return nil
	}

	for _, r := range results {
		name := r.ProjectName
		if name == "" {
			name = r.Path
		}
		fmt.Printf("[%s] %s · %s\n", r.Source, name, r.SessionID)
		for _, m := range r.Matches {
			preview := strings.Join(strings.Fields(m.Preview), " ")
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			fmt.Printf("  %s:%d  %s\n", m.Kind, m.LineNum, preview)
		}
		fmt.Println()
	}

	fmt.Printf("%d matches in %d sessions\n", total, len(results))
	return nil
}

// searchOptionsFromFlags merges the command flags over the defaults.
func searchOptionsFromFlags() index.Options {
	opts := index.DefaultOptions()
	opts.Project = searchProject
	opts.Source = searchSource
	opts.Regex = searchRegex
	opts.CaseSensitive = searchCaseSens
	if searchLimit > 0 {
		opts.Limit = searchLimit
	}
	if searchPerSession > 0 {
		opts.PerSession = searchPerSession
	}
	return opts
}

// runSearchInteractive prompts for a query, lets the user pick a result,
// and opens the session's timeline.
func runSearchInteractive() error {
	query, err := tui.PickSearchQuery()
	if err != nil {
		return err
	}
	if query == "" {
		return nil
	}

	ctx := context.Background()
	results, err := tui.PerformSearch(ctx, query, searchOptionsFromFlags())
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matches found")
		return nil
	}

	selected, err := tui.PickSearchResult(results, query)
	if err != nil {
		return err
	}
	if selected == nil {
		return nil
	}

	registry := CreateSourceRegistry()
	_, meta, ok := registry.FindSession(ctx, selected.SessionID)
	if !ok {
		return fmt.Errorf("session %s not found in any source", selected.SessionID)
	}

	marks, err := bookmarks.NewManager()
	if err != nil {
		return fmt.Errorf("load bookmarks: %w", err)
	}
	defer marks.Close()

	return tui.RunSession(registry, *meta, marks)
}
