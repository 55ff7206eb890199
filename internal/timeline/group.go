// Package timeline implements the rendering and navigation engine for
// session transcripts: grouping of consecutive tool events, virtualized
// windowing over measured item heights, active-item tracking under scroll,
// in-memory search with match navigation, and one-shot deep-link scrolling.
//
// The package is deliberately free of any terminal or HTTP dependency; views
// drive it through the Geometry interface and plain method calls, which is
// also how the tests exercise it.
package timeline

import (
	"fmt"

	"github.com/retracehq/retrace/internal/retrace"
)

// Item is the unit the timeline renders: either a single event or a group
// of ≥2 consecutive tool events merged for display.
type Item struct {
	// Events holds one event for a single, or the ordered members of a
	// group. Never empty.
	Events []retrace.Event

	// Indices are the members' original positions in the filtered event
	// sequence the items were derived from.
	Indices []int

	grouped bool
}

// IsGroup reports whether the item merges multiple events.
func (it Item) IsGroup() bool { return it.grouped }

// Len returns the number of member events.
func (it Item) Len() int { return len(it.Events) }

// First returns the first member event.
func (it Item) First() retrace.Event { return it.Events[0] }

// Kind returns the event kind for a single, or the grouping kind for a
// group.
func (it Item) Kind() retrace.EventKind { return it.Events[0].Kind }

// ToolName returns the shared tool name for tool_use items, "" otherwise.
func (it Item) ToolName() string { return it.Events[0].ToolName }

// Key returns a stable identity for the item that survives filter changes
// and reordering: the first member's event ID, suffixed with the member
// count for groups.
func (it Item) Key() string {
	if !it.grouped {
		return it.Events[0].ID
	}
	return fmt.Sprintf("%s:%d", it.Events[0].ID, len(it.Events))
}

// ContainsEvent reports whether the item carries the event with the given
// ID as one of its members.
func (it Item) ContainsEvent(id string) bool {
	for _, e := range it.Events {
		if e.ID == id {
			return true
		}
	}
	return false
}

// groupable reports whether kind participates in run merging.
func groupable(kind retrace.EventKind) bool {
	return kind == retrace.KindToolUse || kind == retrace.KindToolResult
}

// sameRun reports whether next extends a run started by first: equal kinds,
// and for tool_use an identical tool name. tool_result runs merge
// regardless of origin since results carry no name of their own.
func sameRun(first, next retrace.Event) bool {
	if next.Kind != first.Kind {
		return false
	}
	if first.Kind == retrace.KindToolUse {
		return next.ToolName == first.ToolName
	}
	return true
}

// Group partitions events into display items, merging maximal consecutive
// runs of tool_use (same tool) or tool_result events of length ≥2 into
// groups. Every other event becomes a single. Deterministic and pure;
// empty input yields empty output.
func Group(events []retrace.Event) []Item {
	if len(events) == 0 {
		return nil
	}

	items := make([]Item, 0, len(events))
	i := 0
	for i < len(events) {
		if !groupable(events[i].Kind) {
			items = append(items, Item{
				Events:  []retrace.Event{events[i]},
				Indices: []int{i},
			})
			i++
			continue
		}

		// Collect the maximal run starting at i.
		j := i + 1
		for j < len(events) && sameRun(events[i], events[j]) {
			j++
		}

		if j-i >= 2 {
			members := make([]retrace.Event, j-i)
			indices := make([]int, j-i)
			for k := i; k < j; k++ {
				members[k-i] = events[k]
				indices[k-i] = k
			}
			items = append(items, Item{Events: members, Indices: indices, grouped: true})
		} else {
			items = append(items, Item{
				Events:  []retrace.Event{events[i]},
				Indices: []int{i},
			})
		}
		i = j
	}
	return items
}

// Flatten restores the event order a set of items was grouped from.
func Flatten(items []Item) []retrace.Event {
	var events []retrace.Event
	for _, it := range items {
		events = append(events, it.Events...)
	}
	return events
}

// FindItem returns the index of the item containing the event with the
// given ID, or -1 when no item carries it.
func FindItem(items []Item, eventID string) int {
	if eventID == "" {
		return -1
	}
	for i, it := range items {
		if it.ContainsEvent(eventID) {
			return i
		}
	}
	return -1
}
