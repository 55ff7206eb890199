package tui

import (
	"strings"
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/timeline"
)

func tocTestItems(n int) []timeline.Item {
	return timeline.Group(timelineTestSession(n).Events)
}

func TestTOCOverlayCursorFollowsOffset(t *testing.T) {
	toc := newTOCOverlay(tocTestItems(30), 10, 0)
	defer toc.close()

	if toc.current != 0 {
		t.Fatalf("initial cursor = %d, want 0", toc.current)
	}

	toc.moveTo(7)
	if toc.current != 7 {
		t.Fatalf("cursor after moveTo(7) = %d, want 7", toc.current)
	}
	if got := toc.geom.ScrollOffset(); got != 7 {
		t.Fatalf("offset after moveTo(7) = %d, want 7", got)
	}

	toc.move(-3)
	if toc.current != 4 {
		t.Fatalf("cursor after move(-3) = %d, want 4", toc.current)
	}
}

func TestTOCOverlayStartIndex(t *testing.T) {
	toc := newTOCOverlay(tocTestItems(30), 10, 12)
	defer toc.close()

	if toc.current != 12 {
		t.Fatalf("cursor = %d, want start index 12", toc.current)
	}
}

func TestTOCOverlayMoveClamps(t *testing.T) {
	items := tocTestItems(15)
	toc := newTOCOverlay(items, 10, 0)
	defer toc.close()

	toc.moveTo(-5)
	if toc.current != 0 {
		t.Fatalf("cursor after moveTo(-5) = %d, want 0", toc.current)
	}

	toc.moveTo(999)
	if want := len(items) - 1; toc.current != want {
		t.Fatalf("cursor after moveTo(999) = %d, want %d", toc.current, want)
	}

	toc.move(1)
	if want := len(items) - 1; toc.current != want {
		t.Fatalf("cursor after move past end = %d, want %d", toc.current, want)
	}

	toc.move(-1000)
	if toc.current != 0 {
		t.Fatalf("cursor after move past start = %d, want 0", toc.current)
	}
}

func TestTOCOverlayViewLineCount(t *testing.T) {
	toc := newTOCOverlay(tocTestItems(30), 10, 0)
	defer toc.close()

	// One title line plus bodyHeight-1 rows.
	if got := len(strings.Split(toc.view(80), "\n")); got != 10 {
		t.Fatalf("view produced %d lines, want 10", got)
	}

	toc.resize(6)
	if got := len(strings.Split(toc.view(80), "\n")); got != 6 {
		t.Fatalf("view after resize(6) produced %d lines, want 6", got)
	}
}

func TestTOCOverlayViewPadsShortLists(t *testing.T) {
	toc := newTOCOverlay(tocTestItems(3), 10, 0)
	defer toc.close()

	lines := strings.Split(toc.view(80), "\n")
	if len(lines) != 10 {
		t.Fatalf("view produced %d lines, want 10", len(lines))
	}
	for i, line := range lines[4:] {
		if line != "" {
			t.Fatalf("line %d = %q, want blank padding", i+4, line)
		}
	}
}

func TestTOCOverlayPageSize(t *testing.T) {
	toc := newTOCOverlay(tocTestItems(30), 10, 0)
	defer toc.close()

	if got := toc.pageSize(); got != 8 {
		t.Fatalf("pageSize = %d, want 8", got)
	}

	toc.resize(1)
	if got := toc.pageSize(); got != 1 {
		t.Fatalf("pageSize with no rows = %d, want 1", got)
	}
}

func TestTOCPreviewSummarizesGroups(t *testing.T) {
	events := []retrace.Event{
		{ID: "r1", Kind: retrace.KindToolResult, Content: "ok"},
		{ID: "r2", Kind: retrace.KindToolResult, Content: "ok"},
		{ID: "r3", Kind: retrace.KindToolResult, Content: "ok"},
	}
	items := timeline.Group(events)
	if len(items) != 1 || !items[0].IsGroup() {
		t.Fatalf("expected one grouped item, got %d", len(items))
	}
	if got := tocPreview(items[0]); !strings.Contains(got, "3") {
		t.Fatalf("group preview %q does not carry the run length", got)
	}
}
