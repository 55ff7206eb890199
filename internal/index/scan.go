package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tuilog"
)

// DefaultScanWorkers bounds how many projects are walked concurrently.
const DefaultScanWorkers = 4

// ScanOptions control a catalog scan.
type ScanOptions struct {
	// Rebuild drops every catalog row before scanning so all sessions are
	// re-ingested from scratch.
	Rebuild bool

	// Workers bounds the number of projects walked in parallel.
	// Zero means DefaultScanWorkers.
	Workers int

	// Sources restricts the scan to the given sources. Empty means every
	// registered source.
	Sources []retrace.Source
}

// ScanResult summarizes what a scan did.
type ScanResult struct {
	Projects int // projects seen across all stores
	Sessions int // sessions ingested or refreshed
	Skipped  int // sessions left alone because the file is unchanged
	Pruned   int // catalog rows removed for files or projects that are gone
	Duration time.Duration
}

// Scanner walks every registered store and mirrors what it finds into the
// catalog.
type Scanner struct {
	db       *DB
	registry *retrace.StoreRegistry

	// OnProgress, when set, is called after each project finishes.
	OnProgress func(p retrace.Project, done, total int)

	// mu serializes catalog writes. Listing sessions runs in parallel, but
	// interleaved DuckDB write transactions conflict with each other.
	mu sync.Mutex
}

// NewScanner creates a scanner that writes into db.
func NewScanner(db *DB, registry *retrace.StoreRegistry) *Scanner {
	return &Scanner{db: db, registry: registry}
}

type projectStats struct {
	ingested int
	skipped  int
	pruned   int
}

// Scan walks the stores and upserts projects and sessions into the catalog.
// Sessions whose files are unchanged since the last scan are skipped, and
// rows whose files disappeared are pruned. A project that fails to list is
// logged and skipped rather than failing the whole scan.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	start := time.Now()

	if opts.Rebuild {
		if err := s.reset(ctx); err != nil {
			return nil, err
		}
	}

	projects, err := s.registry.ListAllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects = filterSources(projects, opts.Sources)

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultScanWorkers
	}

	result := &ScanResult{Projects: len(projects)}
	seen := make(map[string]bool, len(projects))
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range projects {
		p := p
		g.Go(func() error {
			st, err := s.syncProject(gctx, p)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				tuilog.Log.Warn("index: project scan failed", "project", p.Name, "source", p.Source, "error", err)
			}

			s.mu.Lock()
			seen[ScopedProjectID(p.Source, p.ID)] = true
			result.Sessions += st.ingested
			result.Skipped += st.skipped
			result.Pruned += st.pruned
			done++
			n := done
			cb := s.OnProgress
			s.mu.Unlock()

			if cb != nil {
				cb(p, n, len(projects))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pruned, err := s.pruneProjects(ctx, seen)
	if err != nil {
		return nil, fmt.Errorf("prune projects: %w", err)
	}
	result.Pruned += pruned
	result.Duration = time.Since(start)
	return result, nil
}

// SyncSession refreshes the catalog row for a single session. The watcher
// calls this when a session file changes on disk.
func (s *Scanner) SyncSession(ctx context.Context, p retrace.Project, sessionID string) error {
	store, ok := s.registry.Get(p.Source)
	if !ok {
		return fmt.Errorf("no store for source %q", p.Source)
	}
	meta, err := store.GetSessionMeta(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session meta: %w", err)
	}
	scoped := ScopedProjectID(p.Source, p.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upsertSession(ctx, scoped, meta); err != nil {
		return err
	}
	return s.markSynced(ctx, meta)
}

// syncProject lists a project's sessions outside the write lock, then
// upserts changed rows and prunes rows for sessions that no longer exist.
func (s *Scanner) syncProject(ctx context.Context, p retrace.Project) (projectStats, error) {
	var st projectStats

	store, ok := s.registry.Get(p.Source)
	if !ok {
		return st, nil
	}
	sessions, err := store.ListSessions(ctx, p.ID)
	if err != nil {
		return st, fmt.Errorf("list sessions: %w", err)
	}

	scoped := ScopedProjectID(p.Source, p.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.upsertProject(ctx, scoped, p, len(sessions)); err != nil {
		return st, err
	}
	existing, err := s.sessionIDs(ctx, scoped)
	if err != nil {
		return st, err
	}

	for i := range sessions {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		meta := &sessions[i]
		delete(existing, meta.ID)

		changed, err := s.needsSync(ctx, meta)
		if err != nil {
			return st, err
		}
		if !changed {
			st.skipped++
			continue
		}
		if err := s.upsertSession(ctx, scoped, meta); err != nil {
			return st, err
		}
		if err := s.markSynced(ctx, meta); err != nil {
			return st, err
		}
		st.ingested++
	}

	for id := range existing {
		if err := s.deleteSession(ctx, id); err != nil {
			return st, err
		}
		st.pruned++
	}
	return st, nil
}

func (s *Scanner) reset(ctx context.Context) error {
	for _, stmt := range []string{
		"DELETE FROM sync_state",
		"DELETE FROM sessions",
		"DELETE FROM projects",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset catalog: %w", err)
		}
	}
	return nil
}

// pruneProjects removes catalog rows for projects that no scan pass saw,
// along with their sessions and sync state.
func (s *Scanner) pruneProjects(ctx context.Context, seen map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM projects")
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx,
			"DELETE FROM sync_state WHERE file_path IN (SELECT path FROM sessions WHERE project_id = ?)", id); err != nil {
			return 0, err
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE project_id = ?", id); err != nil {
			return 0, err
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

func (s *Scanner) upsertProject(ctx context.Context, scopedID string, p retrace.Project, sessionCount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, source, name, path, session_count, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source = excluded.source,
			name = excluded.name,
			path = excluded.path,
			session_count = excluded.session_count,
			last_modified = excluded.last_modified`,
		scopedID, string(p.Source), p.Name, p.Path, sessionCount, p.LastModified.UTC())
	return err
}

func (s *Scanner) upsertSession(ctx context.Context, scopedProjectID string, meta *retrace.SessionMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, project_id, source, path, first_prompt, summary,
			git_branch, model, event_count, file_size, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			project_id = excluded.project_id,
			source = excluded.source,
			path = excluded.path,
			first_prompt = excluded.first_prompt,
			summary = excluded.summary,
			git_branch = excluded.git_branch,
			model = excluded.model,
			event_count = excluded.event_count,
			file_size = excluded.file_size,
			created_at = excluded.created_at,
			modified_at = excluded.modified_at`,
		meta.ID, scopedProjectID, string(meta.Source), meta.FullPath, meta.FirstPrompt, meta.Summary,
		meta.GitBranch, meta.Model, meta.EventCount, meta.FileSize, meta.CreatedAt.UTC(), meta.ModifiedAt.UTC())
	return err
}

// needsSync reports whether the session file changed since it was last
// ingested. DuckDB stores timestamps at microsecond precision, so both
// sides of the comparison are truncated to match.
func (s *Scanner) needsSync(ctx context.Context, meta *retrace.SessionMeta) (bool, error) {
	var lastMod time.Time
	var lastSize int64
	err := s.db.QueryRowContext(ctx,
		"SELECT mod_time, file_size FROM sync_state WHERE file_path = ?",
		meta.FullPath).Scan(&lastMod, &lastSize)
	if errors.Is(err, ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	mod := meta.ModifiedAt.UTC().Truncate(time.Microsecond)
	return !mod.Equal(lastMod.UTC().Truncate(time.Microsecond)) || meta.FileSize != lastSize, nil
}

func (s *Scanner) markSynced(ctx context.Context, meta *retrace.SessionMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_state (file_path, mod_time, file_size, last_synced)
		VALUES (?, ?, ?, ?)`,
		meta.FullPath, meta.ModifiedAt.UTC().Truncate(time.Microsecond), meta.FileSize, time.Now().UTC())
	return err
}

func (s *Scanner) deleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sync_state WHERE file_path IN (SELECT path FROM sessions WHERE id = ?)", sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

func (s *Scanner) sessionIDs(ctx context.Context, scopedProjectID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM sessions WHERE project_id = ?", scopedProjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func filterSources(projects []retrace.Project, sources []retrace.Source) []retrace.Project {
	if len(sources) == 0 {
		return projects
	}
	want := make(map[retrace.Source]bool, len(sources))
	for _, src := range sources {
		want[src] = true
	}
	var out []retrace.Project
	for _, p := range projects {
		if want[p.Source] {
			out = append(out, p)
		}
	}
	return out
}
