package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/server"
	"github.com/retracehq/retrace/internal/tuilog"
)

var (
	servePort       int
	serveHost       string
	serveNoOpen     bool
	serveCORSOrigin string
	serveQuiet      bool
	serveIndexPath  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing projects, sessions, search, and bookmarks
over a REST API. The server reads directly from the discovered sources, so
it reflects new sessions without reindexing.

Search requests require a catalog built with 'retrace index'.

Examples:
  retrace serve                   # Start on default port 8484
  retrace serve -p 8080           # Start on a custom port
  retrace serve --no-open         # Don't auto-open the browser`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", server.DefaultPort, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to bind to")
	serveCmd.Flags().BoolVar(&serveNoOpen, "no-open", false, "Do not open the browser automatically")
	serveCmd.Flags().StringVar(&serveCORSOrigin, "cors-origin", "", "Access-Control-Allow-Origin header value (overrides RETRACE_CORS_ORIGIN)")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "Suppress per-request logging")
	serveCmd.Flags().StringVar(&serveIndexPath, "index", "", "Path to the search catalog (default ~/.retrace/index.duckdb)")
	serveCmd.Flags().StringVar(&logPath, "log", "", "Write debug logs to the given file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	var opts []server.Option
	if serveIndexPath != "" {
		opts = append(opts, server.WithIndexPath(serveIndexPath))
	}
	marks, err := bookmarks.NewManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: bookmarks unavailable: %v\n", err)
	} else {
		defer marks.Close()
		opts = append(opts, server.WithBookmarks(marks))
	}

	srv := server.NewServer(registry, server.Config{
		Host:       serveHost,
		Port:       servePort,
		CORSOrigin: resolveCORSOrigin(),
		Quiet:      serveQuiet,
	}, opts...)

	inst := config.Instance{
		Type:      config.InstanceServe,
		PID:       os.Getpid(),
		Port:      servePort,
		Host:      serveHost,
		StartedAt: time.Now(),
	}
	if err := config.RegisterInstance(inst); err != nil {
		tuilog.Log.Warnf("register instance: %v", err)
	}
	defer config.UnregisterInstance(os.Getpid())

	if !serveNoOpen {
		go func() {
			// Give the listener a moment to come up.
			time.Sleep(500 * time.Millisecond)
			openBrowser("http://" + srv.Addr())
		}()
	}

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// resolveCORSOrigin picks the CORS origin from the flag, then the
// RETRACE_CORS_ORIGIN environment variable, then falls back to "*".
func resolveCORSOrigin() string {
	if serveCORSOrigin != "" {
		return serveCORSOrigin
	}
	if env := os.Getenv("RETRACE_CORS_ORIGIN"); env != "" {
		return env
	}
	return "*"
}

func openBrowser(url string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "linux":
		c = exec.Command("xdg-open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		fmt.Printf("Please open %s in your browser\n", url)
		return
	}
	if err := c.Start(); err != nil {
		fmt.Printf("Please open %s in your browser\n", url)
	}
}
