package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/retracehq/retrace/internal/retrace"
)

type testProjectStore struct {
	source            retrace.Source
	basePath          string
	projects          []retrace.Project
	sessionsByProject map[string][]retrace.SessionMeta
}

var _ retrace.Store = (*testProjectStore)(nil)

func (s *testProjectStore) Source() retrace.Source {
	return s.source
}

func (s *testProjectStore) BasePath() string {
	return s.basePath
}

func (s *testProjectStore) ListProjects(ctx context.Context) ([]retrace.Project, error) {
	return s.projects, nil
}

func (s *testProjectStore) GetProject(ctx context.Context, id string) (*retrace.Project, error) {
	for _, p := range s.projects {
		if p.ID == id || p.Path == id {
			project := p
			return &project, nil
		}
	}
	return nil, retrace.ErrProjectNotFound
}

func (s *testProjectStore) ListSessions(ctx context.Context, projectID string) ([]retrace.SessionMeta, error) {
	return s.sessionsByProject[projectID], nil
}

func (s *testProjectStore) GetSessionMeta(ctx context.Context, sessionID string) (*retrace.SessionMeta, error) {
	for _, sessions := range s.sessionsByProject {
		for _, meta := range sessions {
			if meta.ID == sessionID || meta.FullPath == sessionID {
				match := meta
				return &match, nil
			}
		}
	}
	return nil, retrace.ErrSessionNotFound
}

func (s *testProjectStore) LoadSession(ctx context.Context, sessionID string) (*retrace.Session, error) {
	meta, err := s.GetSessionMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &retrace.Session{Meta: *meta}, nil
}

func (s *testProjectStore) OpenSession(ctx context.Context, sessionID string) (retrace.SessionReader, error) {
	return &noopSessionReader{}, nil
}

type noopSessionReader struct{}

func (r *noopSessionReader) ReadNext() (*retrace.Event, error) { return nil, io.EOF }
func (r *noopSessionReader) Metadata() retrace.SessionMeta     { return retrace.SessionMeta{} }
func (r *noopSessionReader) Close() error                      { return nil }

func makeSingleProjectRegistry(source retrace.Source, projectID, projectPath string, sessionPaths []string) *retrace.StoreRegistry {
	sessions := make([]retrace.SessionMeta, 0, len(sessionPaths))
	for _, p := range sessionPaths {
		name := filepath.Base(p)
		id := strings.TrimSuffix(name, filepath.Ext(name))
		sessions = append(sessions, retrace.SessionMeta{
			ID:          id,
			FullPath:    p,
			Source:      source,
			ProjectPath: projectPath,
		})
	}

	store := &testProjectStore{
		source: source,
		projects: []retrace.Project{
			{
				ID:     projectID,
				Name:   filepath.Base(projectPath),
				Path:   projectPath,
				Source: source,
			},
		},
		sessionsByProject: map[string][]retrace.SessionMeta{
			projectID: sessions,
		},
	}

	registry := retrace.NewRegistry()
	registry.Register(store)
	return registry
}
