// Package codex reads Codex CLI rollout recordings from ~/.codex.
package codex

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/retracehq/retrace/internal/retrace"
)

// Store reads sessions recorded by Codex CLI. Codex has no per-project
// directory layout; sessions live in dated subdirectories and projects are
// inferred by grouping sessions on their recorded working directory.
type Store struct {
	baseDir string
	cache   retrace.StoreCache
}

// NewStore creates a store rooted at baseDir (typically ~/.codex).
func NewStore(baseDir string) *Store {
	if baseDir == "" {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, ".codex")
	}
	s := &Store{baseDir: baseDir}
	s.cache.SetName("codex")
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
	return retrace.SourceCodex
}

// BasePath returns the root directory this store reads from.
func (s *Store) BasePath() string {
	return s.baseDir
}

// ListProjects groups sessions by working directory. Sessions without a
// recorded cwd land in a synthetic "unknown" project.
func (s *Store) ListProjects(ctx context.Context) ([]retrace.Project, error) {
	return s.cache.LoadProjects(func() ([]retrace.Project, error) {
		sessions, err := s.scanSessions()
		if err != nil {
			return nil, err
		}

		byPath := make(map[string]*retrace.Project)
		for _, sess := range sessions {
			projectPath := sess.ProjectPath
			if projectPath == "" {
				projectPath = "unknown"
			}

			p := byPath[projectPath]
			if p == nil {
				name := filepath.Base(projectPath)
				if projectPath == "unknown" || name == "" || name == "." || name == "/" {
					name = "unknown"
				}
				exists := false
				if projectPath != "unknown" {
					if info, err := os.Stat(projectPath); err == nil && info.IsDir() {
						exists = true
					}
				}
				p = &retrace.Project{
					ID:          projectPath,
					Name:        name,
					Path:        projectPath,
					DisplayPath: retrace.DisplayPath(projectPath),
					Source:      retrace.SourceCodex,
					PathExists:  exists,
				}
				byPath[projectPath] = p
			}

			p.SessionCount++
			if sess.ModifiedAt.After(p.LastModified) {
				p.LastModified = sess.ModifiedAt
			}
		}

		projects := make([]retrace.Project, 0, len(byPath))
		for _, p := range byPath {
			projects = append(projects, *p)
		}
		sort.Slice(projects, func(i, j int) bool {
			return projects[i].LastModified.After(projects[j].LastModified)
		})
		return projects, nil
	})
}

// GetProject returns a project matched by ID or path.
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

// ListSessions returns the sessions recorded under one working directory.
func (s *Store) ListSessions(ctx context.Context, projectID string) ([]retrace.SessionMeta, error) {
	return s.cache.LoadSessions(projectID, func() ([]retrace.SessionMeta, error) {
		all, err := s.scanSessions()
		if err != nil {
			return nil, err
		}

		filtered := make([]retrace.SessionMeta, 0, len(all))
		for _, sess := range all {
			if sess.ProjectPath == projectID {
				filtered = append(filtered, sess)
			}
		}
		sort.Slice(filtered, func(i, j int) bool {
			return filtered[i].ModifiedAt.After(filtered[j].ModifiedAt)
		})
		return filtered, nil
	})
}

// GetSessionMeta resolves a session by ID or by full rollout file path.
func (s *Store) GetSessionMeta(ctx context.Context, sessionID string) (*retrace.SessionMeta, error) {
	if filepath.IsAbs(sessionID) {
		if err := retrace.ValidateSessionPath(sessionID, s.baseDir); err != nil {
			return nil, err
		}
		if _, err := os.Stat(sessionID); err != nil {
			return nil, fmt.Errorf("%w: %s", retrace.ErrSessionNotFound, sessionID)
		}
		return s.readSessionMeta(sessionID)
	}

	sessions, err := s.scanSessions()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == sessionID {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", retrace.ErrSessionNotFound, sessionID)
}

// LoadSession reads a complete session into memory.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*retrace.Session, error) {
	meta, err := s.GetSessionMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(meta.FullPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events, err := NewParser(f, meta.ID).ReadAll()
	if err != nil {
		return nil, err
	}

	out := *meta
	out.EventCount = len(events)
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
	return &sessionReader{parser: NewParser(f, meta.ID), file: f, meta: *meta}, nil
}

// WatchConfig scopes filesystem watching to the dated session directories.
func (s *Store) WatchConfig() retrace.WatchConfig {
	return retrace.WatchConfig{
		IncludeDirs: []string{"sessions"},
		MaxDepth:    5,
	}
}

// scanSessions walks <base>/sessions for rollout files. Codex nests them in
// year/month/day directories.
func (s *Store) scanSessions() ([]retrace.SessionMeta, error) {
	root := filepath.Join(s.baseDir, "sessions")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	sessions := make([]retrace.SessionMeta, 0, 128)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}
		meta, err := s.readSessionMeta(path)
		if err != nil || meta == nil {
			return nil
		}
		sessions = append(sessions, *meta)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ModifiedAt.After(sessions[j].ModifiedAt)
	})
	return sessions, nil
}

// readSessionMeta scans one rollout file for its metadata. The whole file is
// read: session_meta sits on the first line but the first prompt, event count
// and turn context can appear anywhere.
func (s *Store) readSessionMeta(path string) (*retrace.SessionMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	meta := &retrace.SessionMeta{
		ID:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FullPath:   path,
		FileSize:   info.Size(),
		ModifiedAt: info.ModTime(),
		Source:     retrace.SourceCodex,
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := retrace.NewScannerWithMaxCapacity(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var l logLine
		if err := sonic.Unmarshal([]byte(line), &l); err != nil {
			continue
		}
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = parseTimestamp(l.Timestamp)
		}

		switch l.Type {
		case "session_meta":
			var payload struct {
				ID            string `json:"id"`
				Timestamp     string `json:"timestamp"`
				CWD           string `json:"cwd"`
				Model         string `json:"model"`
				ModelProvider string `json:"model_provider"`
				Git           struct {
					Branch string `json:"branch"`
				} `json:"git"`
			}
			if err := sonic.Unmarshal(l.Payload, &payload); err != nil {
				continue
			}
			if payload.ID != "" {
				meta.ID = payload.ID
			}
			if payload.CWD != "" {
				meta.ProjectPath = payload.CWD
			}
			if payload.Model != "" {
				meta.Model = payload.Model
			} else if meta.Model == "" && payload.ModelProvider != "" {
				meta.Model = payload.ModelProvider
			}
			if payload.Git.Branch != "" {
				meta.GitBranch = payload.Git.Branch
			}
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = parseTimestamp(payload.Timestamp)
			}

		case "event_msg":
			var payload map[string]any
			if err := sonic.Unmarshal(l.Payload, &payload); err != nil {
				continue
			}
			switch readString(payload, "type") {
			case "user_message":
				meta.EventCount++
				if meta.FirstPrompt == "" {
					meta.FirstPrompt = readString(payload, "message")
				}
			case "agent_message", "agent_reasoning":
				meta.EventCount++
			case "turn_context":
				if meta.ProjectPath == "" {
					meta.ProjectPath = readString(payload, "cwd")
				}
				if meta.Model == "" {
					meta.Model = readString(payload, "model")
				}
			}

		case "response_item":
			var payload map[string]any
			if err := sonic.Unmarshal(l.Payload, &payload); err != nil {
				continue
			}
			switch readString(payload, "type") {
			case "message":
				role := readString(payload, "role")
				if role == "user" || role == "assistant" {
					meta.EventCount++
				}
				if meta.FirstPrompt == "" && role == "user" {
					meta.FirstPrompt = messageText(payload["content"])
				}
			case "reasoning", "function_call", "function_call_output",
				"custom_tool_call", "custom_tool_call_output":
				meta.EventCount++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = meta.ModifiedAt
	}
	if meta.ProjectPath == "" {
		meta.ProjectPath = "unknown"
	}
	return meta, nil
}

type sessionReader struct {
	parser *Parser
	file   io.Closer
	meta   retrace.SessionMeta
}

func (r *sessionReader) ReadNext() (*retrace.Event, error) {
	return r.parser.NextEvent()
}

func (r *sessionReader) Metadata() retrace.SessionMeta {
	return r.meta
}

func (r *sessionReader) Close() error {
	return r.file.Close()
}
