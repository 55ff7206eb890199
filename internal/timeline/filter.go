package timeline

import "github.com/retracehq/retrace/internal/retrace"

// KindFilter tracks which event kinds are visible in the timeline.
type KindFilter struct {
	User       bool
	Assistant  bool
	ToolUse    bool
	ToolResult bool
	Thinking   bool
}

// NewKindFilter returns a filter with every kind enabled.
func NewKindFilter() KindFilter {
	return KindFilter{
		User:       true,
		Assistant:  true,
		ToolUse:    true,
		ToolResult: true,
		Thinking:   true,
	}
}

// Enabled reports whether events of the given kind are visible.
// Unknown kinds are visible so new source formats degrade gracefully.
func (f KindFilter) Enabled(kind retrace.EventKind) bool {
	switch kind {
	case retrace.KindUser:
		return f.User
	case retrace.KindAssistant:
		return f.Assistant
	case retrace.KindToolUse:
		return f.ToolUse
	case retrace.KindToolResult:
		return f.ToolResult
	case retrace.KindThinking:
		return f.Thinking
	default:
		return true
	}
}

// Toggle flips visibility of one kind and returns the updated filter.
func (f KindFilter) Toggle(kind retrace.EventKind) KindFilter {
	switch kind {
	case retrace.KindUser:
		f.User = !f.User
	case retrace.KindAssistant:
		f.Assistant = !f.Assistant
	case retrace.KindToolUse:
		f.ToolUse = !f.ToolUse
	case retrace.KindToolResult:
		f.ToolResult = !f.ToolResult
	case retrace.KindThinking:
		f.Thinking = !f.Thinking
	}
	return f
}

// Enable turns one kind on and returns the updated filter.
func (f KindFilter) Enable(kind retrace.EventKind) KindFilter {
	switch kind {
	case retrace.KindUser:
		f.User = true
	case retrace.KindAssistant:
		f.Assistant = true
	case retrace.KindToolUse:
		f.ToolUse = true
	case retrace.KindToolResult:
		f.ToolResult = true
	case retrace.KindThinking:
		f.Thinking = true
	}
	return f
}

// Apply returns the events whose kind is enabled, preserving order.
func (f KindFilter) Apply(events []retrace.Event) []retrace.Event {
	if f == NewKindFilter() {
		return events
	}
	out := make([]retrace.Event, 0, len(events))
	for _, e := range events {
		if f.Enabled(e.Kind) {
			out = append(out, e)
		}
	}
	return out
}
