// Package version reports the build's version metadata.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is stamped by release builds:
//
//	-ldflags="-X github.com/retracehq/retrace/internal/version.Version=v1.0.0"
//
// Unstamped builds fall back to module or VCS information.
var Version = ""

// Info is the structured form used by `retrace version --json`.
type Info struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
}

// Get resolves the best available version string: the stamped Version, the
// module version for `go install`ed builds, a dev-<shortrev> marker for
// source builds with VCS info, and "dev" as the last resort.
func Get() string {
	if Version != "" {
		return Version
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	if rev := revision(bi); len(rev) >= 7 {
		return "dev-" + rev[:7]
	}
	return "dev"
}

// GetInfo returns the structured metadata for a binary named name.
func GetInfo(name string) Info {
	info := Info{Name: name, Version: Get()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Revision = revision(bi)
	}
	return info
}

// String formats the one-line human-readable version summary.
func String(name string) string {
	return fmt.Sprintf("%s version %s", name, Get())
}

func revision(bi *debug.BuildInfo) string {
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
