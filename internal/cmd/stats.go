package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/analytics"
)

// Stats command flags
var (
	statsProject string
	statsJSON    bool
	statsLimit   int
	statsDays    int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate usage statistics across sessions",
	Long: `Aggregate statistics over recorded sessions from all sources.

Without a subcommand, prints corpus-wide totals. Subcommands break the
numbers down by token usage, tool usage, daily activity, model, or
project.

The numbers are computed directly from the transcript files with DuckDB;
no search catalog is required.

Examples:
  retrace stats                      # Totals across all sources
  retrace stats tokens               # Heaviest sessions by token usage
  retrace stats tools --limit 10     # Most used tools
  retrace stats activity --days 7    # Daily activity for the last week
  retrace stats models               # Responses per model
  retrace stats projects             # Busiest projects
  retrace stats -p myproject tokens  # Scope to one project`,
	RunE: runStatsTotals,
}

var statsTokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Show the heaviest sessions by token usage",
	RunE:  runStatsTokens,
}

var statsToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show tool usage frequency",
	RunE:  runStatsTools,
}

var statsActivityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show daily session and message activity",
	RunE:  runStatsActivity,
}

var statsModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show response counts per model",
	RunE:  runStatsModels,
}

var statsProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Show activity grouped by project",
	RunE:  runStatsProjects,
}

func init() {
	statsCmd.PersistentFlags().StringVarP(&statsProject, "project", "p", "", "restrict to projects matching this ID, name, or path")
	statsCmd.PersistentFlags().BoolVar(&statsJSON, "json", false, "output as JSON")
	statsTokensCmd.Flags().IntVar(&statsLimit, "limit", 20, "number of sessions to show")
	statsToolsCmd.Flags().IntVar(&statsLimit, "limit", 20, "number of tools to show")
	statsActivityCmd.Flags().IntVar(&statsDays, "days", 30, "number of days to include")

	statsCmd.AddCommand(statsTokensCmd)
	statsCmd.AddCommand(statsToolsCmd)
	statsCmd.AddCommand(statsActivityCmd)
	statsCmd.AddCommand(statsModelsCmd)
	statsCmd.AddCommand(statsProjectsCmd)

	rootCmd.AddCommand(statsCmd)
}

// collectEngine builds an analytics engine over every transcript visible
// to the registry, honoring the -p project filter.
func collectEngine(ctx context.Context) (*analytics.Engine, error) {
	registry := CreateSourceRegistry()
	files, err := analytics.CollectFiles(ctx, registry, statsProject)
	if err != nil {
		return nil, err
	}
	return analytics.NewEngine(files)
}

func runStatsTotals(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine, err := collectEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	totals, err := engine.GetTotals(ctx)
	if err != nil {
		return err
	}

	if statsJSON {
		out := struct {
			Sessions          int64  `json:"sessions"`
			UserMessages      int64  `json:"user_messages"`
			AssistantMessages int64  `json:"assistant_messages"`
			FirstActivity     string `json:"first_activity,omitempty"`
			LastActivity      string `json:"last_activity,omitempty"`
		}{
			Sessions:          totals.Sessions,
			UserMessages:      totals.UserMessages,
			AssistantMessages: totals.AssistantMessages,
		}
		if !totals.FirstActivity.IsZero() {
			out.FirstActivity = totals.FirstActivity.Format("2006-01-02")
		}
		if !totals.LastActivity.IsZero() {
			out.LastActivity = totals.LastActivity.Format("2006-01-02")
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	if totals.Sessions == 0 {
		fmt.Println("No session data found")
		return nil
	}

	fmt.Printf("Sessions:           %d\n", totals.Sessions)
	fmt.Printf("User messages:      %d\n", totals.UserMessages)
	fmt.Printf("Assistant messages: %d\n", totals.AssistantMessages)
	if !totals.FirstActivity.IsZero() {
		fmt.Printf("First activity:     %s\n", totals.FirstActivity.Format("2006-01-02"))
	}
	if !totals.LastActivity.IsZero() {
		fmt.Printf("Last activity:      %s\n", totals.LastActivity.Format("2006-01-02"))
	}
	return nil
}

func runStatsTokens(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine, err := collectEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.GetTokenStats(ctx, statsLimit)
	if err != nil {
		return err
	}

	if statsJSON {
		return json.NewEncoder(os.Stdout).Encode(stats)
	}

	if len(stats) == 0 {
		fmt.Println("No token data found")
		return nil
	}

	fmt.Printf("%-40s %10s %10s %10s %10s\n", "SESSION", "INPUT", "OUTPUT", "CACHE", "TOTAL")
	fmt.Println(strings.Repeat("-", 84))
	for _, s := range stats {
		id := s.SessionID
		if len(id) > 40 {
			id = id[:38] + ".."
		}
		fmt.Printf("%-40s %10d %10d %10d %10d\n", id, s.InputTokens, s.OutputTokens, s.CacheTokens, s.TotalTokens)
	}
	return nil
}

func runStatsTools(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine, err := collectEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.GetToolStats(ctx, statsLimit)
	if err != nil {
		return err
	}

	if statsJSON {
		return json.NewEncoder(os.Stdout).Encode(stats)
	}

	if len(stats) == 0 {
		fmt.Println("No tool usage data found")
		return nil
	}

	fmt.Printf("%-40s %10s\n", "TOOL", "COUNT")
	fmt.Println(strings.Repeat("-", 51))
	for _, s := range stats {
		name := s.ToolName
		if len(name) > 40 {
			name = name[:38] + ".."
		}
		fmt.Printf("%-40s %10d\n", name, s.UsageCount)
	}
	return nil
}

func runStatsActivity(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine, err := collectEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	days, err := engine.GetActivity(ctx, statsDays)
	if err != nil {
		return err
	}

	if statsJSON {
		type dayJSON struct {
			Date     string `json:"date"`
			Sessions int64  `json:"sessions"`
			Messages int64  `json:"messages"`
		}
		out := make([]dayJSON, 0, len(days))
		for _, d := range days {
			out = append(out, dayJSON{Date: d.Date.Format("2006-01-02"), Sessions: d.Sessions, Messages: d.Messages})
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	if len(days) == 0 {
		fmt.Println("No activity data found")
		return nil
	}

	fmt.Printf("%-12s %10s %10s\n", "DATE", "SESSIONS", "MESSAGES")
	fmt.Println(strings.Repeat("-", 34))
	for _, d := range days {
		fmt.Printf("%-12s %10d %10d\n", d.Date.Format("2006-01-02"), d.Sessions, d.Messages)
	}
	return nil
}

func runStatsModels(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine, err := collectEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.GetModelStats(ctx)
	if err != nil {
		return err
	}

	if statsJSON {
		return json.NewEncoder(os.Stdout).Encode(stats)
	}

	if len(stats) == 0 {
		fmt.Println("No model data found")
		return nil
	}

	fmt.Printf("%-40s %10s %15s\n", "MODEL", "RESPONSES", "AVG OUTPUT")
	fmt.Println(strings.Repeat("-", 67))
	for _, s := range stats {
		name := s.Model
		if len(name) > 40 {
			name = name[:38] + ".."
		}
		fmt.Printf("%-40s %10d %15.0f\n", name, s.Responses, s.AvgOutputTokens)
	}
	return nil
}

func runStatsProjects(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine, err := collectEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.GetProjectActivity(ctx)
	if err != nil {
		return err
	}

	if statsJSON {
		return json.NewEncoder(os.Stdout).Encode(stats)
	}

	if len(stats) == 0 {
		fmt.Println("No project data found")
		return nil
	}

	fmt.Printf("%-30s %-8s %10s %10s %12s\n", "PROJECT", "SOURCE", "SESSIONS", "MESSAGES", "LAST ACTIVE")
	fmt.Println(strings.Repeat("-", 74))
	for _, s := range stats {
		name := s.Project
		if len(name) > 30 {
			name = name[:28] + ".."
		}
		last := "-"
		if !s.LastActive.IsZero() {
			last = s.LastActive.Format("2006-01-02")
		}
		fmt.Printf("%-30s %-8s %10d %10d %12s\n", name, s.Source, s.Sessions, s.Messages, last)
	}
	return nil
}
