package export

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

// Write renders the session to w in the given format.
func Write(w io.Writer, s *retrace.Session, format Format, opts ...FormatterOption) error {
	return NewFormatter(w, format, opts...).Write(s)
}

// WriteFile renders the session into dir, creating it if needed. An empty
// name picks the timestamped default. Returns the path written.
func WriteFile(dir, name string, s *retrace.Session, format Format, opts ...FormatterOption) (string, error) {
	if name == "" {
		name = DefaultFilename(s.Meta, format, time.Now())
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := NewFormatter(f, format, opts...).Write(s); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
