package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/timeline"
)

// tocOverlay is the table-of-contents view over the timeline's items: one
// row per item, scrolled with the cursor pinned to the top row. The current
// row comes from a top-anchored tracker over the overlay's own geometry,
// with the anchor one line below the overlay title.
type tocOverlay struct {
	items   []timeline.Item
	geom    *viewGeometry
	tracker *timeline.ActiveTracker
	current int
}

// newTOCOverlay builds the overlay for a body area of the given height and
// positions the cursor on startIndex.
func newTOCOverlay(items []timeline.Item, bodyHeight, startIndex int) *tocOverlay {
	t := &tocOverlay{items: items, geom: newViewGeometry()}

	rows := bodyHeight - 1 // title line
	t.geom.setViewport(rows, rows > 0)

	t.tracker = timeline.NewActiveTracker(timeline.AnchorTop, 0, t.geom, t.snapshot)
	t.tracker.SetOnChange(func(index int, _ retrace.EventKind, ok bool) {
		if ok {
			t.current = index
		}
	})
	t.tracker.Watch()

	t.moveTo(startIndex)
	t.tracker.Recompute()
	return t
}

// snapshot exposes the rows to the tracker: every item occupies exactly one
// virtual line.
func (t *tocOverlay) snapshot() ([]timeline.VisibleItem, []timeline.Item) {
	visible := make([]timeline.VisibleItem, len(t.items))
	for i := range t.items {
		visible[i] = timeline.VisibleItem{Index: i, Start: i, End: i + 1}
	}
	return visible, t.items
}

func (t *tocOverlay) move(delta int) {
	t.moveTo(t.geom.ScrollOffset() + delta)
}

func (t *tocOverlay) moveTo(index int) {
	if index > t.lastIndex() {
		index = t.lastIndex()
	}
	if index < 0 {
		index = 0
	}
	t.geom.SetScrollOffset(index)
}

func (t *tocOverlay) lastIndex() int {
	return len(t.items) - 1
}

func (t *tocOverlay) pageSize() int {
	return maxInt(1, t.geom.ViewportHeight()-1)
}

func (t *tocOverlay) resize(bodyHeight int) {
	rows := bodyHeight - 1
	t.geom.setViewport(rows, rows > 0)
}

func (t *tocOverlay) close() {
	t.tracker.Close()
}

// view renders the overlay at the width given, exactly bodyHeight lines:
// one title plus the visible rows.
func (t *tocOverlay) view(width int) string {
	s := GetStyles()

	title := s.Title.Render(i18n.Tf("tui.toc.title", "Contents (%d)", len(t.items))) +
		"  " + s.Help.Render(i18n.T("tui.toc.hints", "enter jump  t close"))

	rows := t.geom.ViewportHeight()
	offset := t.geom.ScrollOffset()

	lines := make([]string, 0, rows+1)
	lines = append(lines, ansi.Truncate(title, width, "…"))
	for i := 0; i < rows; i++ {
		idx := offset + i
		if idx >= len(t.items) {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, t.renderRow(idx, width))
	}
	return strings.Join(lines, "\n")
}

func (t *tocOverlay) renderRow(index, width int) string {
	s := GetStyles()
	it := t.items[index]

	marker := "  "
	if index == t.current {
		marker = s.Separator.Render("▸ ")
	}
	chip := kindLabelStyle(s, it.Kind()).Render(kindShortLabel(it.Kind()))
	row := fmt.Sprintf("%s%4d  %s  %s", marker, index+1, chip, tocPreview(it))
	if index == t.current {
		row = s.Highlight.Render(ansi.Strip(row))
	}
	return ansi.Truncate(row, width, "…")
}

// tocPreview is the one-line summary shown for an item in the contents
// list.
func tocPreview(it timeline.Item) string {
	if it.IsGroup() {
		if it.Kind() == retrace.KindToolResult {
			return i18n.Tf("tui.toc.resultRun", "results ×%d", it.Len())
		}
		return fmt.Sprintf("%s ×%d  %s", it.ToolName(), it.Len(), toolInputSummary(it.First()))
	}
	ev := it.First()
	if ev.Kind == retrace.KindToolUse {
		return strings.TrimSpace(ev.ToolName + "  " + toolInputSummary(ev))
	}
	return firstLine(ev.Content)
}
