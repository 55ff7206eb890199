package claude

import (
	"context"
	"path/filepath"

	"github.com/retracehq/retrace/internal/retrace"
)

// Discoverer implements retrace.StoreFactory for Claude Code.
type Discoverer struct{}

// Factory returns the store factory for Claude Code.
func Factory() retrace.StoreFactory {
	return &Discoverer{}
}

// Source returns the Claude source type.
func (d *Discoverer) Source() retrace.Source {
	return retrace.SourceClaude
}

// Create creates a Claude store, or (nil, nil) when no data directory exists.
func (d *Discoverer) Create() (retrace.Store, error) {
	basePath := DefaultBasePath()
	if basePath == "" {
		return nil, nil
	}
	return NewStore(basePath), nil
}

// IsAvailable reports whether Claude storage exists and holds projects.
func (d *Discoverer) IsAvailable() (bool, error) {
	store, err := d.Create()
	if err != nil || store == nil {
		return false, err
	}
	projects, err := store.ListProjects(context.TODO())
	if err != nil {
		return false, nil
	}
	return len(projects) > 0, nil
}

// IsSessionPath reports whether path points at a Claude trace file.
func IsSessionPath(path string) bool {
	if filepath.Ext(path) != ".jsonl" {
		return false
	}
	base := DefaultBasePath()
	return base != "" && retrace.IsPathWithin(path, base)
}
