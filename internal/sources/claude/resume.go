package claude

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/retracehq/retrace/internal/retrace"
)

// ResumeCommand returns the command that reopens a session in Claude Code.
// claude --resume only works from the project's working directory, which is
// recovered by decoding the trace file's parent directory name.
func (s *Store) ResumeCommand(meta retrace.SessionMeta) (*retrace.ResumeInfo, error) {
	bin, err := exec.LookPath("claude")
	if err != nil {
		return nil, fmt.Errorf("claude CLI not found: %w", err)
	}

	dir := meta.ProjectPath
	if meta.FullPath != "" {
		if _, decoded := DecodeDirName(filepath.Base(filepath.Dir(meta.FullPath))); decoded != "" {
			dir = decoded
		}
	}

	return &retrace.ResumeInfo{
		Command: bin,
		Args:    []string{"claude", "--resume", meta.ID},
		Dir:     dir,
	}, nil
}
