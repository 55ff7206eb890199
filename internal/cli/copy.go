package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/retracehq/retrace/internal/retrace"
)

// CopyOptions configures project copy behavior.
type CopyOptions struct {
	Stdout io.Writer // For writing progress (defaults to os.Stdout)
}

// ProjectCopier handles copying project sessions to a target directory.
type ProjectCopier struct {
	registry *retrace.StoreRegistry
	opts     CopyOptions
}

// NewProjectCopier creates a new project copier.
func NewProjectCopier(registry *retrace.StoreRegistry, opts CopyOptions) *ProjectCopier {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &ProjectCopier{registry: registry, opts: opts}
}

// Copy copies all session files from a project to the target directory.
// projectQuery is a project ID, path, or path suffix; targetDir is where the
// files will be copied to.
func (c *ProjectCopier) Copy(projectQuery, targetDir string) error {
	project, err := ResolveProject(c.registry, projectQuery)
	if err != nil {
		return fmt.Errorf("%w\n\nUse 'retrace projects list' to see available projects", err)
	}

	store, ok := c.registry.Get(project.Source)
	if !ok {
		return fmt.Errorf("source not available: %s", project.Source)
	}

	sessions, err := store.ListSessions(context.Background(), project.ID)
	if err != nil {
		return fmt.Errorf("list project sessions: %w", err)
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found in %s", project.Path)
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	copied, err := c.copySessions(sessions, targetDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.opts.Stdout, "Copied %d files from %s to %s\n", copied, project.Path, targetDir)
	return nil
}

// copySessions copies session files into dstDir in path order, renaming on
// name collisions.
func (c *ProjectCopier) copySessions(sessions []retrace.SessionMeta, dstDir string) (int, error) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].FullPath < sessions[j].FullPath
	})

	namer := targetNamer{dir: dstDir, used: make(map[string]struct{})}
	copied := 0
	for _, session := range sessions {
		srcPath := strings.TrimSpace(session.FullPath)
		if srcPath == "" {
			continue
		}

		dstPath, err := namer.reserve(filepath.Base(srcPath))
		if err != nil {
			return copied, err
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return copied, fmt.Errorf("copy %s: %w", srcPath, err)
		}
		copied++
	}

	if copied == 0 {
		return 0, fmt.Errorf("no session files found to copy")
	}
	return copied, nil
}

// targetNamer hands out destination paths in dir, skipping names already
// reserved in this run or present on disk.
type targetNamer struct {
	dir  string
	used map[string]struct{}
}

func (n *targetNamer) reserve(fileName string) (string, error) {
	name := fileName
	for i := 2; ; i++ {
		if _, taken := n.used[name]; !taken {
			candidate := filepath.Join(n.dir, name)
			_, err := os.Stat(candidate)
			if os.IsNotExist(err) {
				n.used[name] = struct{}{}
				return candidate, nil
			}
			if err != nil {
				return "", fmt.Errorf("check target file %s: %w", candidate, err)
			}
		}
		name = withCopySuffix(fileName, i)
	}
}

// withCopySuffix inserts _n before the extension: session.jsonl, 2 gives
// session_2.jsonl.
func withCopySuffix(fileName string, n int) string {
	ext := filepath.Ext(fileName)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(fileName, ext), n, ext)
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
