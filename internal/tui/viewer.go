package tui

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/retrace"
)

func termSizeOpts() []tea.ProgramOption {
	var opts []tea.ProgramOption
	for _, fd := range []int{int(os.Stdout.Fd()), int(os.Stdin.Fd()), int(os.Stderr.Fd())} {
		if term.IsTerminal(fd) {
			w, h, err := term.GetSize(fd)
			if err == nil && w > 0 && h > 0 {
				opts = append(opts, tea.WithWindowSize(w, h))
				break
			}
		}
	}
	return opts
}

// RunSession opens the timeline for a single session and blocks until the
// user quits.
func RunSession(registry *retrace.StoreRegistry, meta retrace.SessionMeta, marks *bookmarks.Manager) error {
	shell := NewShellWithSession(registry, meta, marks)
	p := tea.NewProgram(shell, termSizeOpts()...)
	_, err := p.Run()
	return err
}

// RunSessionBrowser runs a session picker with a back-navigable timeline.
// Selecting a session opens its timeline; esc returns to the picker.
func RunSessionBrowser(registry *retrace.StoreRegistry, sessions []retrace.SessionMeta, marks *bookmarks.Manager) error {
	shell := NewShellWithSessions(registry, sessions, marks)
	p := tea.NewProgram(shell, termSizeOpts()...)
	_, err := p.Run()
	return err
}
