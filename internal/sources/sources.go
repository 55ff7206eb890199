// Package sources aggregates the store factories of every supported source.
package sources

import (
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/sources/claude"
	"github.com/retracehq/retrace/internal/sources/codex"
)

// AllFactories returns factories for all supported sources. New recording
// tools plug in here.
func AllFactories() []retrace.StoreFactory {
	return []retrace.StoreFactory{
		claude.Factory(),
		codex.Factory(),
	}
}
