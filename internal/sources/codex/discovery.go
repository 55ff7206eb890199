package codex

import (
	"context"
	"os"
	"path/filepath"

	"github.com/retracehq/retrace/internal/retrace"
)

// Discoverer implements retrace.StoreFactory for Codex CLI.
type Discoverer struct{}

// Factory returns the store factory for Codex CLI.
func Factory() retrace.StoreFactory {
	return &Discoverer{}
}

// Source returns the Codex source type.
func (d *Discoverer) Source() retrace.Source {
	return retrace.SourceCodex
}

// Create creates a Codex store, or (nil, nil) when no data directory exists.
func (d *Discoverer) Create() (retrace.Store, error) {
	basePath := DefaultBasePath()
	if basePath == "" {
		return nil, nil
	}
	return NewStore(basePath), nil
}

// IsAvailable reports whether Codex storage exists and holds sessions.
func (d *Discoverer) IsAvailable() (bool, error) {
	store, err := d.Create()
	if err != nil || store == nil {
		return false, err
	}
	projects, err := store.ListProjects(context.Background())
	if err != nil {
		return false, nil
	}
	return len(projects) > 0, nil
}

// DefaultBasePath returns the Codex data directory: RETRACE_CODEX_HOME when
// set, else ~/.codex when present, else empty.
func DefaultBasePath() string {
	if home := os.Getenv("RETRACE_CODEX_HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".codex")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ""
	}
	return dir
}

// IsSessionPath reports whether path points at a Codex rollout file.
func IsSessionPath(path string) bool {
	if filepath.Ext(path) != ".jsonl" {
		return false
	}
	base := DefaultBasePath()
	return base != "" && retrace.IsPathWithin(path, base)
}
