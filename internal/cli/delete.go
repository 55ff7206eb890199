package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui"
)

// DeleteOptions configures project deletion behavior.
type DeleteOptions struct {
	Force  bool      // Skip confirmation prompt
	Stdout io.Writer // For writing output (defaults to os.Stdout)
}

// ProjectDeleter handles project deletion with confirmation.
type ProjectDeleter struct {
	registry *retrace.StoreRegistry
	opts     DeleteOptions
}

// NewProjectDeleter creates a new project deleter.
func NewProjectDeleter(registry *retrace.StoreRegistry, opts DeleteOptions) *ProjectDeleter {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &ProjectDeleter{registry: registry, opts: opts}
}

// Delete removes session files for a project after confirmation.
// projectQuery can be project ID, full project path, or a path suffix.
func (d *ProjectDeleter) Delete(projectQuery string) error {
	project, err := ResolveProject(d.registry, projectQuery)
	if err != nil {
		return fmt.Errorf("%w\n\nUse 'retrace projects list' to see available projects", err)
	}

	store, ok := d.registry.Get(project.Source)
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

	if !d.opts.Force {
		ok, err := d.confirm(project, len(sessions))
		if err != nil || !ok {
			fmt.Fprintf(d.opts.Stdout, "Cancelled.\n")
			return nil
		}
	}

	deleted, err := removeSessionFiles(sessions)
	if err != nil {
		return err
	}

	fmt.Fprintf(d.opts.Stdout, "Deleted %s (%d sessions)\n", project.Path, deleted)
	return nil
}

// confirm shows the project summary and asks before deleting.
func (d *ProjectDeleter) confirm(project *retrace.Project, sessionCount int) (bool, error) {
	fmt.Fprintf(d.opts.Stdout, "Project: %s\n", project.Path)
	fmt.Fprintf(d.opts.Stdout, "Source: %s\n", project.Source)
	fmt.Fprintf(d.opts.Stdout, "Sessions: %d\n", sessionCount)
	if !project.LastModified.IsZero() {
		fmt.Fprintf(d.opts.Stdout, "Last modified: %s\n", project.LastModified.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(d.opts.Stdout)

	result, err := tui.Confirm(tui.ConfirmOptions{
		Prompt:      "Permanently delete all session data for this project?",
		Affirmative: "Delete",
		Negative:    "Cancel",
		Default:     false,
	})
	if err != nil {
		return false, err
	}
	return result == tui.ConfirmYes, nil
}

// removeSessionFiles unlinks each session file. Files that are already
// gone are not an error.
func removeSessionFiles(sessions []retrace.SessionMeta) (int, error) {
	deleted := 0
	for _, session := range sessions {
		if session.FullPath == "" {
			continue
		}
		if err := os.Remove(session.FullPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return deleted, fmt.Errorf("delete session %s: %w", session.FullPath, err)
		}
		deleted++
	}
	return deleted, nil
}
