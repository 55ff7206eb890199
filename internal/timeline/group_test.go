package timeline

import (
	"reflect"
	"testing"

	"github.com/retracehq/retrace/internal/retrace"
)

func evt(id string, kind retrace.EventKind, content string) retrace.Event {
	return retrace.Event{ID: id, Kind: kind, Content: content}
}

func toolUse(id, name string) retrace.Event {
	return retrace.Event{ID: id, Kind: retrace.KindToolUse, ToolName: name}
}

func toolResult(id string) retrace.Event {
	return retrace.Event{ID: id, Kind: retrace.KindToolResult}
}

func TestGroup_MergesConsecutiveToolRuns(t *testing.T) {
	events := []retrace.Event{
		toolUse("e1", "Read"),
		toolUse("e2", "Read"),
		toolUse("e3", "Write"),
		toolResult("e4"),
		toolResult("e5"),
	}

	items := Group(events)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	if !items[0].IsGroup() || items[0].Len() != 2 || items[0].ToolName() != "Read" {
		t.Errorf("item 0: expected group of 2 Read calls, got group=%v len=%d tool=%q",
			items[0].IsGroup(), items[0].Len(), items[0].ToolName())
	}
	if items[1].IsGroup() || items[1].First().ID != "e3" {
		t.Errorf("item 1: expected single Write call, got group=%v id=%q",
			items[1].IsGroup(), items[1].First().ID)
	}
	if !items[2].IsGroup() || items[2].Len() != 2 || items[2].Kind() != retrace.KindToolResult {
		t.Errorf("item 2: expected group of 2 results, got group=%v len=%d kind=%q",
			items[2].IsGroup(), items[2].Len(), items[2].Kind())
	}
}

func TestGroup_FlattenRestoresOrder(t *testing.T) {
	events := []retrace.Event{
		evt("u1", retrace.KindUser, "hi"),
		toolUse("t1", "Read"),
		toolUse("t2", "Read"),
		toolUse("t3", "Read"),
		evt("a1", retrace.KindAssistant, "ok"),
		toolResult("r1"),
		toolResult("r2"),
	}

	flat := Flatten(Group(events))
	if len(flat) != len(events) {
		t.Fatalf("flatten changed length: %d != %d", len(flat), len(events))
	}
	for i := range events {
		if flat[i].ID != events[i].ID {
			t.Errorf("position %d: expected %q, got %q", i, events[i].ID, flat[i].ID)
		}
	}
}

func TestGroup_StableUnderReapplication(t *testing.T) {
	events := []retrace.Event{
		evt("u1", retrace.KindUser, "hi"),
		toolUse("t1", "Read"),
		toolUse("t2", "Read"),
		toolUse("t3", "Write"),
		toolResult("r1"),
		toolResult("r2"),
		evt("th1", retrace.KindThinking, "hmm"),
	}

	once := Group(events)
	again := Group(Flatten(once))
	if !reflect.DeepEqual(once, again) {
		t.Errorf("regrouping the flattened output diverged:\nonce:  %#v\nagain: %#v", once, again)
	}
}

func TestGroup_Deterministic(t *testing.T) {
	events := []retrace.Event{
		toolUse("t1", "Read"),
		toolUse("t2", "Read"),
		evt("a1", retrace.KindAssistant, "ok"),
		toolResult("r1"),
		toolResult("r2"),
	}

	if !reflect.DeepEqual(Group(events), Group(events)) {
		t.Error("grouping the same input twice produced different results")
	}
}

func TestGroup_NeverGroupsBelowTwo(t *testing.T) {
	events := []retrace.Event{
		toolUse("t1", "Read"),
		evt("a1", retrace.KindAssistant, "ok"),
		toolUse("t2", "Read"),
		toolResult("r1"),
		evt("u1", retrace.KindUser, "thanks"),
	}

	for i, it := range Group(events) {
		if it.IsGroup() && it.Len() < 2 {
			t.Errorf("item %d: group with %d members", i, it.Len())
		}
		if !it.IsGroup() && it.Len() != 1 {
			t.Errorf("item %d: single with %d members", i, it.Len())
		}
	}
}

func TestGroup_DifferentToolNamesSplitRuns(t *testing.T) {
	events := []retrace.Event{
		toolUse("t1", "Read"),
		toolUse("t2", "Grep"),
		toolUse("t3", "Read"),
	}

	items := Group(events)
	if len(items) != 3 {
		t.Fatalf("expected 3 singles, got %d items", len(items))
	}
	for i, it := range items {
		if it.IsGroup() {
			t.Errorf("item %d: unexpected group", i)
		}
	}
}

func TestGroup_InterruptedRunStaysSingle(t *testing.T) {
	events := []retrace.Event{
		toolUse("t1", "Read"),
		evt("a1", retrace.KindAssistant, "partial"),
		toolUse("t2", "Read"),
	}

	items := Group(events)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].IsGroup() || items[2].IsGroup() {
		t.Error("non-adjacent same-tool calls must not group")
	}
}

func TestGroup_ConversationKindsStaySingle(t *testing.T) {
	events := []retrace.Event{
		evt("a1", retrace.KindAssistant, "one"),
		evt("a2", retrace.KindAssistant, "two"),
		evt("th1", retrace.KindThinking, "hm"),
		evt("th2", retrace.KindThinking, "hm again"),
	}

	items := Group(events)
	if len(items) != 4 {
		t.Fatalf("expected 4 singles, got %d items", len(items))
	}
}

func TestGroup_EmptyInput(t *testing.T) {
	if items := Group(nil); len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
	if items := Group([]retrace.Event{}); len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestGroup_Keys(t *testing.T) {
	events := []retrace.Event{
		evt("u1", retrace.KindUser, "hi"),
		toolUse("t1", "Read"),
		toolUse("t2", "Read"),
	}

	items := Group(events)
	if got := items[0].Key(); got != "u1" {
		t.Errorf("single key: expected %q, got %q", "u1", got)
	}
	if got := items[1].Key(); got != "t1:2" {
		t.Errorf("group key: expected %q, got %q", "t1:2", got)
	}

	// Keys are stable across regroups of the same events.
	again := Group(events)
	for i := range items {
		if items[i].Key() != again[i].Key() {
			t.Errorf("item %d: key changed across regroup", i)
		}
	}
}

func TestGroup_Indices(t *testing.T) {
	events := []retrace.Event{
		evt("u1", retrace.KindUser, "hi"),
		toolUse("t1", "Read"),
		toolUse("t2", "Read"),
		evt("a1", retrace.KindAssistant, "ok"),
	}

	items := Group(events)
	if !reflect.DeepEqual(items[1].Indices, []int{1, 2}) {
		t.Errorf("group indices: expected [1 2], got %v", items[1].Indices)
	}
	if !reflect.DeepEqual(items[2].Indices, []int{3}) {
		t.Errorf("single indices: expected [3], got %v", items[2].Indices)
	}
}

func TestFindItem(t *testing.T) {
	items := Group([]retrace.Event{
		evt("u1", retrace.KindUser, "hi"),
		toolUse("t1", "Read"),
		toolUse("t2", "Read"),
		evt("a1", retrace.KindAssistant, "ok"),
	})

	tests := []struct {
		id   string
		want int
	}{
		{"u1", 0},
		{"t1", 1},
		{"t2", 1}, // group member resolves to the containing item
		{"a1", 2},
		{"missing", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := FindItem(items, tt.id); got != tt.want {
			t.Errorf("FindItem(%q): expected %d, got %d", tt.id, tt.want, got)
		}
	}
}
