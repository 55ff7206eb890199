package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitExportTarget_Empty(t *testing.T) {
	dir, name := splitExportTarget("")
	if dir != "" || name != "" {
		t.Errorf("expected empty dir and name, got (%q, %q)", dir, name)
	}
}

func TestSplitExportTarget_TrailingSeparator(t *testing.T) {
	target := "out" + string(os.PathSeparator)
	dir, name := splitExportTarget(target)
	if dir != target || name != "" {
		t.Errorf("expected (%q, \"\"), got (%q, %q)", target, dir, name)
	}
}

func TestSplitExportTarget_ExistingDir(t *testing.T) {
	tmp := t.TempDir()
	dir, name := splitExportTarget(tmp)
	if dir != tmp || name != "" {
		t.Errorf("expected (%q, \"\"), got (%q, %q)", tmp, dir, name)
	}
}

func TestSplitExportTarget_FilePath(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "session.md")
	dir, name := splitExportTarget(target)
	if dir != tmp || name != "session.md" {
		t.Errorf("expected (%q, %q), got (%q, %q)", tmp, "session.md", dir, name)
	}
}
