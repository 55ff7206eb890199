package codex

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

const fixtureRollout = `{"timestamp":"2026-03-02T09:00:00.000Z","type":"session_meta","payload":{"id":"0196fa2d","timestamp":"2026-03-02T09:00:00.000Z","cwd":"/srv/retrace/fixtures/api","model":"o4-mini","model_provider":"openai","git":{"branch":"main"}}}
{"timestamp":"2026-03-02T09:00:01.000Z","type":"event_msg","payload":{"type":"user_message","message":"profile the slow endpoint"}}
{"timestamp":"2026-03-02T09:00:02.000Z","type":"response_item","payload":{"type":"reasoning","summary":[{"type":"summary_text","text":"Look at the handler first"}]}}
{"timestamp":"2026-03-02T09:00:03.000Z","type":"response_item","payload":{"type":"function_call","call_id":"call_1","name":"shell","arguments":"{\"command\":[\"go\",\"test\"]}"}}
{"timestamp":"2026-03-02T09:00:04.000Z","type":"response_item","payload":{"type":"function_call_output","call_id":"call_1","output":"{\"output\":\"ok: 12 passed\"}"}}
{"timestamp":"2026-03-02T09:00:05.000Z","type":"event_msg","payload":{"type":"agent_message","message":"The handler allocates per request."}}
`

func readAllEvents(t *testing.T, jsonl string) []retrace.Event {
	t.Helper()
	events, err := NewParser(strings.NewReader(jsonl), "0196fa2d").ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return events
}

func TestParser_EventSequence(t *testing.T) {
	events := readAllEvents(t, fixtureRollout)

	wantKinds := []retrace.EventKind{
		retrace.KindUser,
		retrace.KindThinking,
		retrace.KindToolUse,
		retrace.KindToolResult,
		retrace.KindAssistant,
	}
	if len(events) != len(wantKinds) {
		t.Fatalf("got %d events, want %d", len(events), len(wantKinds))
	}
	for i, want := range wantKinds {
		if events[i].Kind != want {
			t.Errorf("events[%d].Kind = %v, want %v", i, events[i].Kind, want)
		}
	}

	if events[0].Content != "profile the slow endpoint" {
		t.Errorf("user content = %q", events[0].Content)
	}
	if events[1].Content != "Look at the handler first" {
		t.Errorf("thinking content = %q", events[1].Content)
	}
	if events[4].Content != "The handler allocates per request." {
		t.Errorf("assistant content = %q", events[4].Content)
	}

	want := time.Date(2026, 3, 2, 9, 0, 1, 0, time.UTC)
	if !events[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", events[0].Timestamp, want)
	}
}

func TestParser_EventIDs(t *testing.T) {
	events := readAllEvents(t, fixtureRollout)

	wantIDs := []string{
		"0196fa2d:000002:user_message",
		"0196fa2d:000003:reasoning",
		"0196fa2d:000004:function_call:call_1",
		"0196fa2d:000005:function_call_output:call_1",
		"0196fa2d:000006:agent_message",
	}
	for i, want := range wantIDs {
		if events[i].ID != want {
			t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, want)
		}
	}
}

func TestParser_FunctionCall(t *testing.T) {
	events := readAllEvents(t, fixtureRollout)

	tool := events[2]
	if tool.ToolName != "shell" || tool.ToolUseID != "call_1" {
		t.Errorf("tool = %+v", tool)
	}
	cmd, ok := tool.ToolInput["command"].([]any)
	if !ok || len(cmd) != 2 || cmd[0] != "go" {
		t.Errorf("ToolInput = %v", tool.ToolInput)
	}
}

func TestParser_OutputEnvelopeUnwrapped(t *testing.T) {
	events := readAllEvents(t, fixtureRollout)

	result := events[3]
	if result.Content != "ok: 12 passed" {
		t.Errorf("result content = %q, want unwrapped output", result.Content)
	}
	if result.ToolUseID != "call_1" {
		t.Errorf("ToolUseID = %q", result.ToolUseID)
	}
}

func TestParser_CustomToolCall(t *testing.T) {
	jsonl := `{"timestamp":"2026-03-02T09:00:03Z","type":"response_item","payload":{"type":"custom_tool_call","call_id":"call_2","name":"apply_patch","input":"*** Begin Patch"}}
{"timestamp":"2026-03-02T09:00:04Z","type":"response_item","payload":{"type":"custom_tool_call_output","call_id":"call_2","output":"Done"}}
`
	events := readAllEvents(t, jsonl)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ToolInput["input"] != "*** Begin Patch" {
		t.Errorf("ToolInput = %v", events[0].ToolInput)
	}
	if events[1].Content != "Done" {
		t.Errorf("output = %q", events[1].Content)
	}
}

func TestParser_ResponseMessageRoles(t *testing.T) {
	jsonl := `{"timestamp":"2026-03-02T09:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hello"}]}}
{"timestamp":"2026-03-02T09:00:02Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hi"}]}}
{"timestamp":"2026-03-02T09:00:03Z","type":"response_item","payload":{"type":"message","role":"system","content":[{"type":"text","text":"preamble"}]}}
`
	events := readAllEvents(t, jsonl)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (system messages skipped)", len(events))
	}
	if events[0].Kind != retrace.KindUser || events[0].Content != "hello" {
		t.Errorf("first = %+v", events[0])
	}
	if events[1].Kind != retrace.KindAssistant || events[1].Content != "hi" {
		t.Errorf("second = %+v", events[1])
	}
}

func TestParser_ReasoningFallsBackToText(t *testing.T) {
	jsonl := `{"timestamp":"2026-03-02T09:00:02Z","type":"response_item","payload":{"type":"reasoning","text":"raw reasoning"}}
`
	events := readAllEvents(t, jsonl)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Content != "raw reasoning" {
		t.Errorf("content = %q", events[0].Content)
	}
}

func TestParser_SkipsNonTranscriptLines(t *testing.T) {
	jsonl := `{"timestamp":"2026-03-02T09:00:00Z","type":"session_meta","payload":{"id":"x"}}
{"timestamp":"2026-03-02T09:00:01Z","type":"event_msg","payload":{"type":"turn_context","cwd":"/srv","model":"o4-mini"}}
{"timestamp":"2026-03-02T09:00:02Z","type":"unknown_type","payload":{}}
not json at all
{"timestamp":"2026-03-02T09:00:03Z","type":"event_msg","payload":{"type":"user_message","message":"still here"}}
`
	events := readAllEvents(t, jsonl)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Content != "still here" {
		t.Errorf("content = %q", events[0].Content)
	}
}

func TestParser_EmptyStream(t *testing.T) {
	p := NewParser(strings.NewReader(""), "s")
	if _, err := p.NextEvent(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"text blocks", []any{map[string]any{"text": "a"}, map[string]any{"text": "b"}}, "a\nb"},
		{"input_text", []any{map[string]any{"input_text": "question"}}, "question"},
		{"output_text", []any{map[string]any{"output_text": "answer"}}, "answer"},
		{"not a list", "plain", ""},
		{"empty", []any{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageText(tt.in); got != tt.want {
				t.Errorf("messageText() = %q, want %q", got, tt.want)
			}
		})
	}
}
