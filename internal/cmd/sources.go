package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/sources"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show detected session sources",
	Long: `Show which AI assistant session sources exist on this machine.

Sources are the recording tools whose transcripts retrace can read
(Claude Code under ~/.claude, Codex under ~/.codex).

Examples:
  retrace sources          # List sources and project counts
  retrace sources status   # Per-source detail`,
	RunE: runSourcesList,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources and their availability",
	RunE:  runSourcesList,
}

var sourcesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-source detail",
	RunE:  runSourcesStatus,
}

func init() {
	sourcesCmd.PersistentFlags().BoolVar(&sourcesJSON, "json", false, "Output as JSON")
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesStatusCmd)
	rootCmd.AddCommand(sourcesCmd)
}

type sourceRow struct {
	Source   retrace.Source `json:"source"`
	Detected bool           `json:"detected"`
	Projects int            `json:"projects"`
	Path     string         `json:"path,omitempty"`
}

// collectSourceRows reports every supported source, detected or not. The
// registry only holds detected ones, so undetected sources come straight
// from the factory list.
func collectSourceRows(ctx context.Context) []sourceRow {
	registry := CreateSourceRegistry()

	var rows []sourceRow
	for _, f := range sources.AllFactories() {
		row := sourceRow{Source: f.Source()}
		if store, ok := registry.Get(f.Source()); ok {
			row.Detected = true
			row.Path = store.BasePath()
			if projects, err := store.ListProjects(ctx); err == nil {
				row.Projects = len(projects)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	rows := collectSourceRows(context.Background())

	if sourcesJSON {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	home, _ := os.UserHomeDir()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSTATUS\tPROJECTS\tPATH")
	for _, row := range rows {
		status := "not detected"
		projects := "-"
		path := "-"
		if row.Detected {
			status = "available"
			projects = fmt.Sprintf("%d", row.Projects)
			path = row.Path
			if home != "" && strings.HasPrefix(path, home) {
				path = "~" + strings.TrimPrefix(path, home)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Source, status, projects, path)
	}
	return w.Flush()
}

func runSourcesStatus(cmd *cobra.Command, args []string) error {
	rows := collectSourceRows(context.Background())

	if sourcesJSON {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	for i, row := range rows {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Source:    %s\n", row.Source)
		if !row.Detected {
			fmt.Printf("Status:    not detected\n")
			continue
		}
		fmt.Printf("Status:    available\n")
		fmt.Printf("Base path: %s\n", row.Path)
		fmt.Printf("Projects:  %d\n", row.Projects)
	}
	return nil
}
