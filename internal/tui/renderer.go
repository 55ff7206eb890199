package tui

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/timeline"
)

const (
	thinkingPreviewBytes = 500
	resultPreviewLines   = 6
)

// Renderer draws timeline items as label + styled block, with glamour
// markdown for assistant text. Glamour renderers wrap at a fixed width, so
// they are cached per width; a resize hits a new cache slot instead of
// rebuilding on every item.
type Renderer struct {
	mu      sync.Mutex
	byWidth map[int]*glamour.TermRenderer
}

// NewRenderer creates an empty renderer cache.
func NewRenderer() *Renderer {
	return &Renderer{byWidth: make(map[int]*glamour.TermRenderer)}
}

// markdown returns the glamour renderer for the given wrap width.
func (r *Renderer) markdown(width int) *glamour.TermRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.byWidth[width]; ok {
		return g
	}
	// Widths cycle through a handful of values as the terminal resizes;
	// reset rather than grow without bound.
	if len(r.byWidth) > 8 {
		r.byWidth = make(map[int]*glamour.TermRenderer)
	}
	g, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	r.byWidth[width] = g
	return g
}

// RenderItem renders one timeline item at the given width. highlighted
// applies the deep-link/search highlight style to the block.
func (r *Renderer) RenderItem(it timeline.Item, width int, highlighted bool) string {
	contentWidth := maxInt(20, width-4)
	if it.IsGroup() {
		return r.renderGroup(it, contentWidth, highlighted)
	}
	return r.renderEvent(it.First(), contentWidth, highlighted)
}

// RenderEvents renders a plain event sequence, used by theme previews.
func (r *Renderer) RenderEvents(events []retrace.Event, width int) string {
	contentWidth := maxInt(20, width-4)
	var b strings.Builder
	for _, ev := range events {
		s := r.renderEvent(ev, contentWidth, false)
		if s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r *Renderer) renderEvent(ev retrace.Event, width int, highlighted bool) string {
	s := GetStyles()

	var label, content string
	var block func(...string) string

	switch ev.Kind {
	case retrace.KindUser:
		label = s.UserLabel.Render(i18n.T("tui.label.user", "User"))
		content = ev.Content
		block = s.UserBlock.Width(width).Render

	case retrace.KindAssistant:
		label = s.AssistantLabel.Render(i18n.T("tui.label.assistant", "Assistant"))
		content = ev.Content
		if g := r.markdown(width); g != nil {
			if rendered, err := g.Render(ev.Content); err == nil {
				content = strings.TrimSpace(rendered)
			}
		}
		block = s.AssistantBlock.Width(width).Render

	case retrace.KindThinking:
		label = s.ThinkingLabel.Render(i18n.T("tui.label.thinking", "Thinking"))
		content = ev.Content
		if len(content) > thinkingPreviewBytes {
			content = content[:thinkingPreviewBytes] + "..."
		}
		block = s.ThinkingBlock.Width(width).Render

	case retrace.KindToolUse:
		label = s.ToolLabel.Render(i18n.Tf("tui.label.tool", "Tool: %s", ev.ToolName))
		content = toolInputSummary(ev)
		block = s.ToolCallBlock.Width(width).Render

	case retrace.KindToolResult:
		name := i18n.T("tui.label.toolResult", "Tool Result")
		if ev.IsError {
			name = i18n.T("tui.label.toolError", "Tool Error")
		}
		label = s.ToolLabel.Render(name)
		content = clipLines(ev.Content, resultPreviewLines)
		block = s.ToolResultBlock.Width(width).Render

	default:
		return ""
	}

	if content == "" {
		return ""
	}
	if highlighted {
		block = s.Highlight.Width(width).Render
	}
	return label + "\n" + block(content)
}

// renderGroup renders a merged run of tool events: a counted header and one
// compact line per member.
func (r *Renderer) renderGroup(it timeline.Item, width int, highlighted bool) string {
	s := GetStyles()

	var label string
	if it.Kind() == retrace.KindToolUse {
		label = s.ToolLabel.Render(i18n.Tf("tui.label.toolGroup", "Tool: %s ×%d", it.ToolName(), it.Len()))
	} else {
		label = s.ToolLabel.Render(i18n.Tf("tui.label.resultGroup", "Tool Results ×%d", it.Len()))
	}

	lines := make([]string, 0, it.Len())
	for _, ev := range it.Events {
		lines = append(lines, groupMemberLine(ev))
	}

	block := s.ToolCallBlock
	if it.Kind() == retrace.KindToolResult {
		block = s.ToolResultBlock
	}
	styled := block.Width(width).Render
	if highlighted {
		styled = s.Highlight.Width(width).Render
	}
	return label + "\n" + styled(strings.Join(lines, "\n"))
}

// groupMemberLine summarizes one member of a tool run in a single line.
func groupMemberLine(ev retrace.Event) string {
	if ev.Kind == retrace.KindToolUse {
		return "• " + retrace.TruncateString(toolInputSummary(ev), 80)
	}
	marker := "✓"
	if ev.IsError {
		marker = "✗"
	}
	line := firstLine(ev.Content)
	if line == "" {
		line = i18n.T("tui.label.emptyResult", "(no output)")
	}
	return marker + " " + retrace.TruncateString(line, 80)
}

// toolInputSummary picks the most telling part of a tool invocation: the
// touched file when there is one, otherwise a compact key=value listing.
func toolInputSummary(ev retrace.Event) string {
	if len(ev.FilesAffected) > 0 {
		return ev.FilesAffected[0]
	}
	if len(ev.ToolInput) == 0 {
		return ev.ToolName
	}

	keys := make([]string, 0, len(ev.ToolInput))
	for k := range ev.ToolInput {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, retrace.TruncateString(fmt.Sprintf("%v", ev.ToolInput[k]), 40)))
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// clipLines keeps the first n lines and notes how many were dropped.
func clipLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	clipped := strings.Join(lines[:n], "\n")
	return clipped + "\n" + i18n.Tf("tui.label.moreLines", "… %d more lines", len(lines)-n)
}

// maxInt returns the larger of a and b.
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
