package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retracehq/retrace/internal/retrace"
)

// ambiguousLimit caps how many candidate paths an ambiguity error lists.
const ambiguousLimit = 5

// ResolveProject resolves a user-provided project query to a known project.
// Query can be project ID, absolute path, relative path, or path suffix.
func ResolveProject(registry *retrace.StoreRegistry, query string) (*retrace.Project, error) {
	if registry == nil {
		return nil, fmt.Errorf("store registry is required")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("project query is required")
	}

	projects, err := registry.ListAllProjects(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	pathQuery := query
	if !filepath.IsAbs(pathQuery) {
		if abs, err := filepath.Abs(pathQuery); err == nil {
			pathQuery = abs
		}
	}

	// Exact ID and canonical-path matches win over suffix matches, so a
	// project named like another project's parent still resolves.
	passes := []func(p retrace.Project) bool{
		func(p retrace.Project) bool {
			return p.ID == query || samePath(p.Path, pathQuery)
		},
		func(p retrace.Project) bool {
			return pathHasSuffix(p.Path, query)
		},
	}

	for _, match := range passes {
		var hits []retrace.Project
		for _, p := range projects {
			if match(p) {
				hits = append(hits, p)
			}
		}
		switch len(hits) {
		case 0:
			continue
		case 1:
			hit := hits[0]
			return &hit, nil
		default:
			return nil, ambiguousQueryError(query, hits)
		}
	}

	if looksLikePathQuery(query) {
		if info, err := os.Stat(pathQuery); err == nil && info.IsDir() {
			return nil, fmt.Errorf("no sessions found in %s", pathQuery)
		}
	}
	return nil, fmt.Errorf("project not found: %s", query)
}

func ambiguousQueryError(query string, matches []retrace.Project) error {
	var b strings.Builder
	b.WriteString("project query is ambiguous, matched multiple projects:")
	shown := min(len(matches), ambiguousLimit)
	for _, m := range matches[:shown] {
		b.WriteString("\n  - ")
		b.WriteString(m.Path)
	}
	if rest := len(matches) - shown; rest > 0 {
		fmt.Fprintf(&b, "\n  ... and %d more", rest)
	}
	return fmt.Errorf("%s", b.String())
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// pathHasSuffix reports whether path ends in suffix on a path-component
// boundary. A bare name also matches the final component.
func pathHasSuffix(path, suffix string) bool {
	if path == "" || suffix == "" {
		return false
	}

	pathNorm := filepath.ToSlash(filepath.Clean(path))
	suffixNorm := filepath.ToSlash(filepath.Clean(suffix))

	if pathNorm == suffixNorm {
		return true
	}
	if strings.HasSuffix(pathNorm, suffixNorm) {
		prefixLen := len(pathNorm) - len(suffixNorm)
		return prefixLen == 0 || pathNorm[prefixLen-1] == '/'
	}
	if strings.Contains(suffixNorm, "/") {
		return false
	}
	return filepath.Base(pathNorm) == filepath.Base(suffixNorm)
}

func looksLikePathQuery(query string) bool {
	return filepath.IsAbs(query) ||
		strings.HasPrefix(query, ".") ||
		strings.ContainsRune(query, '/') ||
		strings.ContainsRune(query, '\\')
}
