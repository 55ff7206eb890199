package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/tuilog"
)

var (
	logsFile   string
	logsLines  int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show debug logs",
	Long: `Show debug logs written by the TUI and server commands.

Looks for the file named by --file, then ` + tuilog.EnvFile + `, then the
default location under the config directory.

Examples:
  retrace logs            # last 50 lines
  retrace logs -f         # follow new output
  retrace logs -n 200     # last 200 lines`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsFile, "file", "", "Log file to read")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep the file open and print new lines")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	path := logsFile
	if path == "" {
		path = os.Getenv(tuilog.EnvFile)
	}
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "logs", "retrace.log")
	}
	return tailLogFile(path, logsLines, logsFollow)
}

// tailLogFile prints the last n lines from path, optionally following for
// new content.
func tailLogFile(path string, n int, follow bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("log file not found: %s (set %s or pass --log to a command)", path, tuilog.EnvFile)
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	lines, err := readLastLines(f, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Print(line)
	}

	if !follow {
		return nil
	}

	for {
		buf := make([]byte, 4096)
		nr, err := f.Read(buf)
		if nr > 0 {
			os.Stdout.Write(buf[:nr])
		}
		if err != nil && err != io.EOF {
			return err
		}
		if nr == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// readLastLines reads the last n lines from a file, each including its
// trailing newline, and leaves the offset at EOF for follow mode.
func readLastLines(f *os.File, n int) ([]string, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	// Log files stay small enough to read whole.
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}

	var lines []string
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			lines = append(lines, string(buf[start:i+1]))
			start = i + 1
		}
	}
	if start < len(buf) {
		lines = append(lines, string(buf[start:])+"\n")
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return lines, nil
}
