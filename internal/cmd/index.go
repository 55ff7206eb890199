package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/index"
	"github.com/retracehq/retrace/internal/retrace"
)

// Index command flags
var (
	indexDBPath  string
	indexRebuild bool
	indexWatch   bool
	indexWorkers int
	indexSources []string
	indexQuiet   bool
	indexJSON    bool
)

// indexStatusJSON is the JSON schema for retrace index status --json.
type indexStatusJSON struct {
	Database      string     `json:"database"`
	Built         bool       `json:"built"`
	Projects      int        `json:"projects,omitempty"`
	Sessions      int        `json:"sessions,omitempty"`
	Watching      bool       `json:"watching"`
	PID           int        `json:"pid,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	UptimeSeconds int        `json:"uptime_seconds,omitempty"`
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and maintain the search catalog",
	Long: `Scan all discovered sources and mirror their sessions into the
search catalog used by 'retrace search' and the API server.

Repeated runs are incremental: sessions whose files are unchanged since
the last scan are skipped, and rows whose files disappeared are pruned.
Use --rebuild to drop the catalog and re-ingest everything.

With --watch, the command keeps running after the initial scan and
re-indexes sessions as their files change on disk.

Examples:
  retrace index                      # Incremental scan of all sources
  retrace index --rebuild            # Drop and re-ingest everything
  retrace index --watch              # Scan, then keep the catalog current
  retrace index -s codex             # Only scan Codex sessions`,
	RunE: runIndex,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog size and watcher state",
	RunE:  runIndexStatus,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "drop the catalog and re-ingest everything")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep running and re-index sessions as files change")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "projects scanned in parallel (default 4)")
	indexCmd.Flags().StringArrayVarP(&indexSources, "source", "s", nil, "source to scan (claude|codex, can be specified multiple times, default: all)")
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "suppress per-project progress output")
	indexCmd.PersistentFlags().StringVar(&indexDBPath, "db", "", "catalog database path (default: ~/.retrace/index.duckdb)")

	indexStatusCmd.Flags().BoolVar(&indexJSON, "json", false, "output as JSON")

	indexCmd.AddCommand(indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveIndexPath()
	if err != nil {
		return err
	}

	cfg, _ := config.Load()
	if len(indexSources) == 0 {
		indexSources = cfg.Indexer.Sources
	}

	registry := CreateSourceRegistry()
	if len(registry.All()) == 0 {
		fmt.Println("No sources found")
		return nil
	}

	var scanSources []retrace.Source
	for _, name := range indexSources {
		source := retrace.Source(name)
		if _, ok := registry.Get(source); !ok {
			return fmt.Errorf("unknown source: %s (available: claude, codex)", name)
		}
		scanSources = append(scanSources, source)
	}

	// Another writer on the same catalog causes DuckDB lock errors.
	if inst := config.FindInstanceByType(config.InstanceIndexWatch); inst != nil && inst.PID != os.Getpid() {
		fmt.Fprintf(os.Stderr, "Warning: a catalog watcher is already running (PID: %d).\n", inst.PID)
		fmt.Fprintf(os.Stderr, "Both processes write to %s, which may cause lock errors.\n\n", dbPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := runIndexScan(ctx, dbPath, registry, scanSources); err != nil {
		return err
	}

	if !indexWatch {
		return nil
	}

	return runIndexWatch(ctx, dbPath, registry, cfg)
}

// runIndexScan performs one scan and closes its catalog handle before
// returning, so a follow-up watcher can take the write connection.
func runIndexScan(ctx context.Context, dbPath string, registry *retrace.StoreRegistry, scanSources []retrace.Source) error {
	db, err := index.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	scanner := index.NewScanner(db, registry)
	if !indexQuiet {
		scanner.OnProgress = func(p retrace.Project, done, total int) {
			fmt.Printf("[%d/%d] %s\n", done, total, p.Name)
		}
	}

	result, err := scanner.Scan(ctx, index.ScanOptions{
		Rebuild: indexRebuild,
		Workers: indexWorkers,
		Sources: scanSources,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d sessions across %d projects (%d unchanged, %d pruned) in %s\n",
		result.Sessions, result.Projects, result.Skipped, result.Pruned,
		result.Duration.Round(time.Millisecond))
	return nil
}

// runIndexWatch blocks until ctx is cancelled, re-indexing sessions as
// their files change.
func runIndexWatch(ctx context.Context, dbPath string, registry *retrace.StoreRegistry, cfg config.Config) error {
	watcher, err := index.NewWatcher(dbPath, registry, cfg.Indexer.DebounceDuration())
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Start(ctx); err != nil {
		watcher.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}

	if err := config.RegisterInstance(config.Instance{
		Type:      config.InstanceIndexWatch,
		PID:       os.Getpid(),
		StartedAt: time.Now(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: register instance: %v\n", err)
	}
	defer config.UnregisterInstance(os.Getpid())

	fmt.Println("Watching for session changes (ctrl-c to stop)")
	<-ctx.Done()
	return watcher.Stop()
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveIndexPath()
	if err != nil {
		return err
	}

	inst := config.FindInstanceByType(config.InstanceIndexWatch)

	var projects, sessions int
	built := false
	if db, err := index.OpenReadOnly(dbPath); err == nil {
		if p, s, err := db.Counts(context.Background()); err == nil {
			projects, sessions = p, s
			built = true
		}
		db.Close()
	}

	if indexJSON {
		status := indexStatusJSON{
			Database: dbPath,
			Built:    built,
			Projects: projects,
			Sessions: sessions,
			Watching: inst != nil,
		}
		if inst != nil {
			status.PID = inst.PID
			status.StartedAt = &inst.StartedAt
			status.UptimeSeconds = int(time.Since(inst.StartedAt).Seconds())
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Database: %s\n", dbPath)
	if built {
		fmt.Printf("Projects: %d\n", projects)
		fmt.Printf("Sessions: %d\n", sessions)
	} else if inst != nil {
		fmt.Println("Catalog:  busy (watcher holds the write connection)")
	} else {
		fmt.Println("Catalog:  not built (run 'retrace index')")
	}
	if inst != nil {
		fmt.Printf("Watcher:  running (PID: %d, up %s)\n", inst.PID, time.Since(inst.StartedAt).Round(time.Second))
	} else {
		fmt.Println("Watcher:  not running")
	}
	return nil
}

// resolveIndexPath returns the catalog path from --db or the default.
func resolveIndexPath() (string, error) {
	if indexDBPath != "" {
		return indexDBPath, nil
	}
	return index.DefaultPath()
}
