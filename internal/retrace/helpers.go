package retrace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Default truncation length for display strings.
const DefaultTruncateLength = 50

// Buffer sizes for JSONL scanners. Session lines can carry entire file
// contents inside tool results, so the max capacity is generous.
const (
	DefaultBufferSize = 64 * 1024
	MaxLineCapacity   = 10 * 1024 * 1024
)

// TruncateString truncates a string to max length, adding "..." if truncated.
// If max is 0 or negative, returns the empty string.
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// NewScannerWithMaxCapacity creates a bufio.Scanner sized for large JSONL
// session files: 64KB initial buffer, 10MB max line capacity.
func NewScannerWithMaxCapacity(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, DefaultBufferSize)
	scanner.Buffer(buf, MaxLineCapacity)
	return scanner
}

// NewScannerWithMaxCapacityCustom creates a bufio.Scanner with custom buffer
// settings for callers that need different limits than the defaults.
func NewScannerWithMaxCapacityCustom(r io.Reader, initialBufSize, maxCapacity int) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, initialBufSize)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}

// DisplayPath abbreviates a path under the user's home directory with "~".
// Paths outside the home directory come back unchanged.
func DisplayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}

// ValidateSessionPath validates that a session path resolves inside the
// expected base directory, preventing traversal through crafted IDs or
// symlinks. The leaf may not exist yet; its parent is resolved instead.
func ValidateSessionPath(sessionPath, baseDir string) error {
	if strings.TrimSpace(sessionPath) == "" {
		return fmt.Errorf("invalid session path: empty path")
	}
	if strings.TrimSpace(baseDir) == "" {
		return fmt.Errorf("invalid base path: empty path")
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}
	absSession, err := filepath.Abs(sessionPath)
	if err != nil {
		return fmt.Errorf("invalid session path: %w", err)
	}

	realBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}

	realSession, err := filepath.EvalSymlinks(absSession)
	if err != nil {
		if os.IsNotExist(err) {
			parentReal, parentErr := filepath.EvalSymlinks(filepath.Dir(absSession))
			if parentErr != nil {
				return fmt.Errorf("invalid session path: %w", err)
			}
			realSession = filepath.Join(parentReal, filepath.Base(absSession))
		} else {
			return fmt.Errorf("invalid session path: %w", err)
		}
	}

	if !IsPathWithin(realSession, realBase) {
		return fmt.Errorf("invalid session path: %s is not within %s", sessionPath, baseDir)
	}
	return nil
}

// IsPathWithin reports whether path is base or a descendant of base.
// Both paths must already be absolute and symlink-resolved.
func IsPathWithin(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}
