package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/server"
	"github.com/retracehq/retrace/internal/tuilog"
)

var (
	mcpAllowTools []string
	mcpDenyTools  []string
	mcpIndexPath  string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start an MCP (Model Context Protocol) server on stdio so AI tools can
query recorded sessions.

Tools exposed: list_sources, list_projects, list_sessions, get_session,
search_sessions. search_sessions requires a catalog built with
'retrace index'.

Tool filtering:
  --allow-tools list_projects,get_session   # register only these
  --deny-tools search_sessions              # register all but these
  RETRACE_MCP_ALLOW_TOOLS / RETRACE_MCP_DENY_TOOLS work as fallbacks
  when the flags are not set. Deny wins over allow.

Examples:
  retrace mcp
  retrace mcp --deny-tools search_sessions
  retrace mcp --index /tmp/scratch.duckdb`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringSliceVar(&mcpAllowTools, "allow-tools", nil, "Register only these tools (comma-separated)")
	mcpCmd.Flags().StringSliceVar(&mcpDenyTools, "deny-tools", nil, "Never register these tools (comma-separated)")
	mcpCmd.Flags().StringVar(&mcpIndexPath, "index", "", "Path to the search catalog (default ~/.retrace/index.duckdb)")
	mcpCmd.Flags().StringVar(&logPath, "log", "", "Write debug logs to the given file")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := initTUILog(); err != nil {
		return err
	}
	defer tuilog.Log.Close()

	registry := CreateSourceRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	allow := mcpAllowTools
	if len(allow) == 0 {
		if env := os.Getenv("RETRACE_MCP_ALLOW_TOOLS"); env != "" {
			allow = strings.Split(env, ",")
		}
	}
	deny := mcpDenyTools
	if len(deny) == 0 {
		if env := os.Getenv("RETRACE_MCP_DENY_TOOLS"); env != "" {
			deny = strings.Split(env, ",")
		}
	}

	ms := server.NewMCPServer(registry, mcpIndexPath)
	ms.SetToolFilters(allow, deny)

	if err := config.RegisterInstance(config.Instance{
		Type:      config.InstanceMCP,
		PID:       os.Getpid(),
		StartedAt: time.Now(),
	}); err != nil {
		tuilog.Log.Warnf("register instance: %v", err)
	}
	defer config.UnregisterInstance(os.Getpid())

	fmt.Fprintln(os.Stderr, "Starting MCP server on stdio...")

	err := ms.RunStdio(ctx)
	if err != nil && (errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF")) {
		// Client closed the pipe; normal shutdown.
		return nil
	}
	return err
}
