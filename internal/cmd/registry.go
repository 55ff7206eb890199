package cmd

import (
	"context"
	"fmt"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/sources"
)

// CreateSourceRegistry creates a registry with all discovered sources.
// Discovery failures yield an empty registry rather than an error so
// commands can still run (and report) with no sources attached.
func CreateSourceRegistry() *retrace.StoreRegistry {
	discovery := retrace.NewDiscovery(sources.AllFactories()...)

	registry, err := discovery.Discover(context.Background())
	if err != nil {
		return retrace.NewRegistry()
	}
	return registry
}

// selectStores resolves source names to stores. An empty name list selects
// every registered store.
func selectStores(registry *retrace.StoreRegistry, sourceNames []string) ([]retrace.Store, error) {
	if len(sourceNames) == 0 {
		return registry.All(), nil
	}

	stores := make([]retrace.Store, 0, len(sourceNames))
	for _, name := range sourceNames {
		store, ok := registry.Get(retrace.Source(name))
		if !ok {
			return nil, fmt.Errorf("unknown source: %s (available: claude, codex)", name)
		}
		stores = append(stores, store)
	}
	return stores, nil
}

// GetProjectsFromSources returns projects from the selected sources.
// If no sources specified, returns projects from all available sources.
func GetProjectsFromSources(registry *retrace.StoreRegistry, sourceNames []string) ([]retrace.Project, error) {
	ctx := context.Background()

	if len(sourceNames) == 0 {
		return registry.ListAllProjects(ctx)
	}

	stores, err := selectStores(registry, sourceNames)
	if err != nil {
		return nil, err
	}

	var all []retrace.Project
	for i, store := range stores {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("list projects from %s: %w", sourceNames[i], err)
		}
		all = append(all, projects...)
	}
	return all, nil
}

// GetSessionsForProject returns sessions for a project from the selected
// sources. If no sources specified, searches all available sources.
// The projectID can be a store-specific ID or a filesystem path; both are
// tried.
func GetSessionsForProject(registry *retrace.StoreRegistry, projectID string, sourceNames []string) ([]retrace.SessionMeta, error) {
	ctx := context.Background()

	stores, err := selectStores(registry, sourceNames)
	if err != nil {
		return nil, err
	}

	path := resolveProjectPath(ctx, stores, projectID)

	var all []retrace.SessionMeta
	for _, store := range stores {
		all = append(all, storeSessions(ctx, store, projectID, path)...)
	}
	return all, nil
}

// resolveProjectPath maps a store-specific project ID to its filesystem
// path. IDs that no store recognizes are assumed to already be paths.
func resolveProjectPath(ctx context.Context, stores []retrace.Store, projectID string) string {
	for _, store := range stores {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			continue
		}
		for _, p := range projects {
			if p.ID == projectID {
				return p.Path
			}
		}
	}
	return projectID
}

// storeSessions lists a single store's sessions for the project, trying the
// raw ID first and falling back to matching the resolved path against the
// store's own project IDs.
func storeSessions(ctx context.Context, store retrace.Store, projectID, path string) []retrace.SessionMeta {
	if sessions, err := store.ListSessions(ctx, projectID); err == nil && len(sessions) > 0 {
		return sessions
	}

	projects, err := store.ListProjects(ctx)
	if err != nil {
		return nil
	}
	for _, p := range projects {
		if p.Path != path {
			continue
		}
		if sessions, err := store.ListSessions(ctx, p.ID); err == nil {
			return sessions
		}
		return nil
	}
	return nil
}
