// Package claude reads Claude Code session recordings from ~/.claude.
package claude

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/retracehq/retrace/internal/retrace"
)

// Store reads projects and sessions recorded by Claude Code.
type Store struct {
	baseDir string
	cache   retrace.StoreCache
}

// NewStore creates a store rooted at baseDir (typically ~/.claude).
func NewStore(baseDir string) *Store {
	s := &Store{baseDir: baseDir}
	s.cache.SetName("claude")
	return s
}

// SetCacheTTL makes cached listings expire after d.
func (s *Store) SetCacheTTL(d time.Duration) {
	s.cache.SetTTL(d)
}

// ResetCache drops cached listings.
func (s *Store) ResetCache() { s.cache.Clear() }

// Source returns the source type for this store.
func (s *Store) Source() retrace.Source {
	return retrace.SourceClaude
}

// BasePath returns the root directory this store reads from.
func (s *Store) BasePath() string {
	return s.baseDir
}

// ListProjects returns all Claude projects with at least one session.
func (s *Store) ListProjects(ctx context.Context) ([]retrace.Project, error) {
	return s.cache.LoadProjects(func() ([]retrace.Project, error) {
		local, err := ListProjects(s.baseDir)
		if err != nil {
			return nil, err
		}
		projects := make([]retrace.Project, 0, len(local))
		for _, p := range local {
			projects = append(projects, toProject(p))
		}
		return projects, nil
	})
}

// GetProject returns a project matched by directory name ID or decoded path.
func (s *Store) GetProject(ctx context.Context, id string) (*retrace.Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == id || projects[i].Path == id {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", retrace.ErrProjectNotFound, id)
}

// ListSessions returns the sessions of one project, newest metadata included.
func (s *Store) ListSessions(ctx context.Context, projectID string) ([]retrace.SessionMeta, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.baseDir, "projects", project.ID)
	path := project.Path

	return s.cache.LoadSessions(project.ID, func() ([]retrace.SessionMeta, error) {
		local, err := ListProjectSessionsBackfill(dir)
		if err != nil {
			return nil, err
		}
		sessions := make([]retrace.SessionMeta, 0, len(local))
		for _, m := range local {
			sessions = append(sessions, toSessionMeta(m, path))
		}
		return sessions, nil
	})
}

// GetSessionMeta resolves a session by ID or by full trace file path.
func (s *Store) GetSessionMeta(ctx context.Context, sessionID string) (*retrace.SessionMeta, error) {
	if filepath.IsAbs(sessionID) && strings.HasSuffix(sessionID, ".jsonl") {
		return s.sessionMetaByPath(sessionID)
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		sessions, err := s.ListSessions(ctx, p.ID)
		if err != nil {
			continue
		}
		for i := range sessions {
			if sessions[i].ID == sessionID {
				return &sessions[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", retrace.ErrSessionNotFound, sessionID)
}

// sessionMetaByPath builds metadata for a trace file without listing every
// project first. Deep links and the file watcher hand us bare paths.
func (s *Store) sessionMetaByPath(sessionPath string) (*retrace.SessionMeta, error) {
	if err := retrace.ValidateSessionPath(sessionPath, s.baseDir); err != nil {
		return nil, err
	}
	info, err := os.Stat(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", retrace.ErrSessionNotFound, sessionPath)
	}

	projectDir := filepath.Dir(sessionPath)
	_, projectPath := DecodeDirName(filepath.Base(projectDir))
	sessionID := strings.TrimSuffix(filepath.Base(sessionPath), ".jsonl")

	meta := retrace.SessionMeta{
		ID:          sessionID,
		ProjectPath: projectPath,
		FullPath:    sessionPath,
		CreatedAt:   info.ModTime(),
		ModifiedAt:  info.ModTime(),
		Source:      retrace.SourceClaude,
		FileSize:    info.Size(),
	}

	// Enrich from the index sidecar when it knows this session.
	if data, err := os.ReadFile(filepath.Join(projectDir, "sessions-index.json")); err == nil {
		var idx sessionsIndex
		if sonic.Unmarshal(data, &idx) == nil {
			if idx.OriginalPath != "" {
				meta.ProjectPath = idx.OriginalPath
			}
			for _, m := range parseIndexEntries(idx.Entries, projectDir) {
				if m.SessionID != sessionID {
					continue
				}
				meta.FirstPrompt = m.FirstPrompt
				meta.Summary = m.Summary
				meta.Model = m.Model
				meta.EventCount = m.MessageCount
				meta.GitBranch = m.GitBranch
				if !m.Created.IsZero() {
					meta.CreatedAt = m.Created
				}
				if !m.Modified.IsZero() {
					meta.ModifiedAt = m.Modified
				}
				break
			}
		}
	}

	if meta.FirstPrompt == "" || !retrace.IsRealModel(meta.Model) {
		prompt, model := scanHints(sessionPath)
		if meta.FirstPrompt == "" {
			meta.FirstPrompt = prompt
		}
		if !retrace.IsRealModel(meta.Model) {
			meta.Model = model
		}
	}
	return &meta, nil
}

// LoadSession reads a complete session into memory.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*retrace.Session, error) {
	meta, err := s.GetSessionMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	local, err := ReadSessionFile(meta.FullPath)
	if err != nil {
		return nil, err
	}

	events := local.Events()
	out := *meta
	out.EventCount = len(events)
	if local.GitBranch != "" {
		out.GitBranch = local.GitBranch
	}
	if retrace.IsRealModel(local.Model) {
		out.Model = local.Model
	}
	if local.Summary != "" && out.Summary == "" {
		out.Summary = local.Summary
	}
	if !local.StartTime.IsZero() {
		out.CreatedAt = local.StartTime
	}
	if !local.EndTime.IsZero() {
		out.ModifiedAt = local.EndTime
	}
	return &retrace.Session{Meta: out, Events: events}, nil
}

// OpenSession returns a streaming reader over the session's events.
func (s *Store) OpenSession(ctx context.Context, sessionID string) (retrace.SessionReader, error) {
	meta, err := s.GetSessionMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(meta.FullPath)
	if err != nil {
		return nil, err
	}
	return &parserReader{f: f, p: NewParser(f), meta: *meta}, nil
}

// WatchConfig scopes filesystem watching to the session data directories.
func (s *Store) WatchConfig() retrace.WatchConfig {
	return retrace.WatchConfig{
		IncludeDirs: []string{"projects"},
		ExcludeDirs: []string{"file-history", "tool-results", "debug", "todos"},
		MaxDepth:    4,
	}
}

// parserReader streams flattened events straight off the parser. One raw
// entry can fan out into several events, so a small pending queue sits
// between the parser and ReadNext.
type parserReader struct {
	f       *os.File
	p       *Parser
	meta    retrace.SessionMeta
	pending []retrace.Event
}

func (r *parserReader) ReadNext() (*retrace.Event, error) {
	for len(r.pending) == 0 {
		entry, err := r.p.NextEntry()
		if err != nil {
			return nil, err
		}
		r.pending = Flatten(entry, r.p.Line()-1)
	}
	ev := r.pending[0]
	r.pending = r.pending[1:]
	return &ev, nil
}

func (r *parserReader) Metadata() retrace.SessionMeta {
	return r.meta
}

func (r *parserReader) Close() error {
	return r.f.Close()
}

func toProject(p Project) retrace.Project {
	return retrace.Project{
		ID:           p.DirName,
		Name:         p.DisplayName,
		Path:         p.FullPath,
		DisplayPath:  retrace.DisplayPath(p.FullPath),
		SessionCount: p.SessionCount,
		LastModified: p.LastModified,
		Source:       retrace.SourceClaude,
		PathExists:   pathExists(p.FullPath),
	}
}

func toSessionMeta(m SessionMeta, projectPath string) retrace.SessionMeta {
	return retrace.SessionMeta{
		ID:          m.SessionID,
		ProjectPath: projectPath,
		FullPath:    m.FullPath,
		FirstPrompt: m.FirstPrompt,
		Summary:     m.Summary,
		EventCount:  m.MessageCount,
		CreatedAt:   m.Created,
		ModifiedAt:  m.Modified,
		GitBranch:   m.GitBranch,
		Model:       m.Model,
		Source:      retrace.SourceClaude,
		FileSize:    m.FileSize,
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
