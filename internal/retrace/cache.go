package retrace

import (
	"sync"
	"time"
)

// StoreCache caches project and session listings for Store implementations.
// Stores embed it to avoid repeated filesystem scans during a process
// lifetime. With TTL=0 (default) data is cached forever; SetTTL makes
// entries expire and refetch transparently on the next access.
type StoreCache struct {
	mu   sync.Mutex
	name string
	ttl  time.Duration

	projectsCached   bool
	projectsCachedAt time.Time
	projects         []Project
	projectsErr      error

	sessions map[string]*sessionsCacheEntry
}

type sessionsCacheEntry struct {
	cachedAt time.Time
	sessions []SessionMeta
	err      error
}

// SetName labels this cache for log messages.
func (c *StoreCache) SetName(name string) { c.name = name }

// SetTTL configures expiry. Zero means cache forever.
func (c *StoreCache) SetTTL(d time.Duration) { c.ttl = d }

// LoadProjects returns the cached project list, calling fetch on a miss
// or after expiry. The fetch result (including its error) is cached.
func (c *StoreCache) LoadProjects(fetch func() ([]Project, error)) ([]Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.projectsCached && !c.expired(c.projectsCachedAt) {
		return c.projects, c.projectsErr
	}

	projects, err := fetch()
	c.projectsCached = true
	c.projectsCachedAt = time.Now()
	c.projects = projects
	c.projectsErr = err
	return projects, err
}

// LoadSessions returns the cached session list for a project, calling
// fetch on a miss or after expiry.
func (c *StoreCache) LoadSessions(projectID string, fetch func() ([]SessionMeta, error)) ([]SessionMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.sessions[projectID]; ok && !c.expired(entry.cachedAt) {
		return entry.sessions, entry.err
	}

	sessions, err := fetch()
	if c.sessions == nil {
		c.sessions = make(map[string]*sessionsCacheEntry)
	}
	c.sessions[projectID] = &sessionsCacheEntry{
		cachedAt: time.Now(),
		sessions: sessions,
		err:      err,
	}
	return sessions, err
}

// Clear drops all cached data, forcing the next calls to rescan.
func (c *StoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectsCached = false
	c.projects = nil
	c.projectsErr = nil
	c.sessions = nil
}

func (c *StoreCache) expired(at time.Time) bool {
	return c.ttl > 0 && time.Since(at) > c.ttl
}
