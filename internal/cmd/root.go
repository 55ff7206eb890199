// Package cmd provides the CLI commands for retrace.
package cmd

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/i18n"
)

// global flags
var (
	profileFile *os.File // held open for profiling
	logPath     string
	verbose     bool
)

// rootCmd is the root command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "retrace",
	Short: "Explore recorded AI coding assistant sessions",
	Long: `retrace is a terminal viewer for recorded AI coding assistant sessions.

Supports: Claude Code, Codex CLI

Running without a subcommand launches the interactive timeline TUI.

Commands:
  projects  List and manage projects
  sessions  List, view, and manage sessions
  export    Export a session to markdown, JSON, or plain text
  search    Search indexed session content
  index     Build and maintain the search index
  stats     Aggregate usage statistics
  serve     Run the HTTP API server
  mcp       Run the MCP server on stdio

Examples:
  retrace                           # Launch TUI
  retrace projects list             # List all projects from all sources
  retrace search "pagination bug"   # Search indexed sessions`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Start pprof profiling if RETRACE_PROFILE is set
		if profilePath := os.Getenv("RETRACE_PROFILE"); profilePath != "" {
			f, err := os.Create(profilePath)
			if err != nil {
				return fmt.Errorf("create profile file: %w", err)
			}
			profileFile = f

			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				profileFile = nil
				return fmt.Errorf("start CPU profile: %w", err)
			}
		}

		cfg, _ := config.Load()
		i18n.Init(i18n.ResolveLocale(cfg.Language))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		// Stop CPU profiling
		if profileFile != nil {
			pprof.StopCPUProfile()
			profileFile.Close()
			profileFile = nil
		}
		return nil
	},
	RunE: runTUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// isTTY reports whether stdin is attached to a terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().StringVar(&logPath, "log", "", "write debug log to file")
}
