package cmd

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/retracehq/retrace/internal/bookmarks"
	"github.com/retracehq/retrace/internal/tui"
	"github.com/retracehq/retrace/internal/tuilog"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive timeline explorer",
	Long: `Browse recorded sessions in a full-terminal interface.

Navigate sources, projects, and sessions, then read each session as a
scrolling timeline of prompts, responses, thinking blocks, and tool
calls. Bookmarks, filtering, and in-session search are available from
the timeline.

Starts on the project list for the current directory when it matches a
known project, otherwise on the source picker.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&logPath, "log", "", "write debug log to file")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if err := initTUILog(); err != nil {
		return err
	}
	defer tuilog.Log.Close()

	tuilog.Log.Info("Starting TUI")

	opts := termSizeOptions()

	marks, err := bookmarks.NewManager()
	if err != nil {
		return fmt.Errorf("load bookmarks: %w", err)
	}
	defer marks.Close()

	shell := tui.NewShell(tui.InitialPageAuto, marks)
	p := tea.NewProgram(shell, opts...)
	_, err = p.Run()

	tuilog.Log.Info("TUI exited", "error", err)
	return err
}

// initTUILog sets up the debug log from --log or the environment.
func initTUILog() error {
	if logPath != "" {
		if err := tuilog.Init(logPath); err != nil {
			return fmt.Errorf("init log: %w", err)
		}
		return nil
	}
	return tuilog.InitFromEnv()
}

// termSizeOptions probes stdout, stdin, and stderr for a usable terminal
// size so the first frame can lay out before the real resize arrives.
func termSizeOptions() []tea.ProgramOption {
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
