package retrace

import (
	"context"
	"sort"
)

// StoreFactory creates Store instances for a specific source. Each source
// implements this to provide its own discovery and creation logic.
type StoreFactory interface {
	// Source returns the source type this factory creates stores for.
	Source() Source

	// Create attempts to create a Store for this source.
	// Returns (nil, nil) if the source is not available on this machine.
	Create() (Store, error)

	// IsAvailable checks whether the source has data without creating a
	// full store.
	IsAvailable() (bool, error)
}

// Discovery manages source detection and store creation.
type Discovery struct {
	factories []StoreFactory
}

// NewDiscovery creates a new discovery manager with the given factories.
func NewDiscovery(factories ...StoreFactory) *Discovery {
	return &Discovery{factories: factories}
}

// Register adds a factory to the discovery manager.
func (d *Discovery) Register(factory StoreFactory) {
	d.factories = append(d.factories, factory)
}

// Discover finds all available sources and returns a populated registry.
// Sources that fail to open or hold no projects are skipped silently.
func (d *Discovery) Discover(ctx context.Context) (*StoreRegistry, error) {
	registry := NewRegistry()

	for _, factory := range d.factories {
		store, err := factory.Create()
		if err != nil || store == nil {
			continue
		}
		projects, err := store.ListProjects(ctx)
		if err == nil && len(projects) > 0 {
			registry.Register(store)
		}
	}

	return registry, nil
}

// StoreRegistry manages the stores of every detected source.
type StoreRegistry struct {
	stores map[Source]Store
}

// NewRegistry creates a new store registry.
func NewRegistry() *StoreRegistry {
	return &StoreRegistry{stores: make(map[Source]Store)}
}

// Register adds a store to the registry.
func (r *StoreRegistry) Register(store Store) {
	r.stores[store.Source()] = store
}

// Get returns a store by source type.
func (r *StoreRegistry) Get(source Source) (Store, bool) {
	s, ok := r.stores[source]
	return s, ok
}

// All returns all registered stores in stable source order.
func (r *StoreRegistry) All() []Store {
	result := make([]Store, 0, len(r.stores))
	for _, s := range r.stores {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Source() < result[j].Source()
	})
	return result
}

// Sources returns the registered source types in stable order.
func (r *StoreRegistry) Sources() []Source {
	sources := make([]Source, 0, len(r.stores))
	for s := range r.stores {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}

// SourceStatus returns availability details for every registered store.
func (r *StoreRegistry) SourceStatus(ctx context.Context) []SourceInfo {
	infos := make([]SourceInfo, 0, len(r.stores))
	for _, store := range r.All() {
		projects, err := store.ListProjects(ctx)
		infos = append(infos, SourceInfo{
			Source:    store.Source(),
			Available: err == nil && len(projects) > 0,
			BasePath:  store.BasePath(),
		})
	}
	return infos
}

// ListAllProjects returns projects from all registered stores, most recently
// modified first. Stores that fail to list are skipped.
func (r *StoreRegistry) ListAllProjects(ctx context.Context) ([]Project, error) {
	var all []Project
	for _, store := range r.All() {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			continue
		}
		all = append(all, projects...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastModified.After(all[j].LastModified)
	})
	return all, nil
}

// FindSession locates a session by ID across all stores, returning the
// owning store alongside the metadata.
func (r *StoreRegistry) FindSession(ctx context.Context, sessionID string) (Store, *SessionMeta, bool) {
	for _, store := range r.All() {
		meta, err := store.GetSessionMeta(ctx, sessionID)
		if err == nil && meta != nil {
			return store, meta, true
		}
	}
	return nil, nil, false
}

// FindProjectForPath returns the project whose path contains the given
// filesystem path, preferring the longest match. Returns nil when no
// registered project covers the path.
func (r *StoreRegistry) FindProjectForPath(ctx context.Context, path string) *Project {
	var best *Project
	for _, store := range r.All() {
		projects, err := store.ListProjects(ctx)
		if err != nil {
			continue
		}
		for i := range projects {
			p := &projects[i]
			if p.Path == "" || !IsPathWithin(path, p.Path) {
				continue
			}
			if best == nil || len(p.Path) > len(best.Path) {
				found := *p
				best = &found
			}
		}
	}
	return best
}
