package codex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/retracehq/retrace/internal/retrace"
)

// Parser reads Codex CLI rollout files and yields transcript events. Codex
// logs one protocol item per line, so unlike the Claude format no fan-out is
// needed; lines that carry no transcript content (session metadata, turn
// context, unknown types) are skipped.
type Parser struct {
	scanner   *bufio.Scanner
	sessionID string
	line      int
}

// logLine is the envelope every rollout line shares.
type logLine struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// NewParser creates a parser for one session stream. sessionID seeds the
// synthesized event IDs; rollout lines carry none of their own.
func NewParser(r io.Reader, sessionID string) *Parser {
	return &Parser{
		scanner:   retrace.NewScannerWithMaxCapacity(r),
		sessionID: sessionID,
	}
}

// NextEvent returns the next transcript event, or io.EOF at end of stream.
func (p *Parser) NextEvent() (*retrace.Event, error) {
	for p.scanner.Scan() {
		p.line++
		line := bytes.TrimSpace(p.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var l logLine
		if err := sonic.Unmarshal(line, &l); err != nil {
			continue
		}
		if ev := p.convert(&l); ev != nil {
			return ev, nil
		}
	}
	if err := p.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAll consumes the stream and returns every transcript event.
func (p *Parser) ReadAll() ([]retrace.Event, error) {
	var events []retrace.Event
	for {
		ev, err := p.NextEvent()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, *ev)
	}
}

func (p *Parser) convert(l *logLine) *retrace.Event {
	ts := parseTimestamp(l.Timestamp)
	switch l.Type {
	case "event_msg":
		return p.convertEventMsg(l.Payload, ts)
	case "response_item":
		return p.convertResponseItem(l.Payload, ts)
	default:
		return nil
	}
}

func (p *Parser) convertEventMsg(raw json.RawMessage, ts time.Time) *retrace.Event {
	var payload map[string]any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	kind := readString(payload, "type")
	switch kind {
	case "user_message":
		return p.textEvent(retrace.KindUser, ts, kind, readString(payload, "message"))
	case "agent_message":
		return p.textEvent(retrace.KindAssistant, ts, kind, readString(payload, "message"))
	case "agent_reasoning":
		return p.textEvent(retrace.KindThinking, ts, kind, readString(payload, "text"))
	default:
		return nil
	}
}

func (p *Parser) convertResponseItem(raw json.RawMessage, ts time.Time) *retrace.Event {
	var payload map[string]any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	itemType := readString(payload, "type")
	switch itemType {
	case "message":
		// System and developer messages are tool plumbing, not transcript.
		switch readString(payload, "role") {
		case "user":
			return p.textEvent(retrace.KindUser, ts, itemType, messageText(payload["content"]))
		case "assistant":
			return p.textEvent(retrace.KindAssistant, ts, itemType, messageText(payload["content"]))
		default:
			return nil
		}

	case "reasoning":
		return p.textEvent(retrace.KindThinking, ts, itemType, reasoningText(payload))

	case "function_call", "custom_tool_call":
		callID := readString(payload, "call_id")
		name := readString(payload, "name")
		if callID == "" && name == "" {
			return nil
		}
		input := toolArgs(payload)
		return &retrace.Event{
			ID:            p.eventID(itemType, callID),
			Kind:          retrace.KindToolUse,
			Timestamp:     ts,
			ToolName:      name,
			ToolInput:     input,
			ToolUseID:     callID,
			FilesAffected: filesTouched(input),
		}

	case "function_call_output", "custom_tool_call_output":
		callID := readString(payload, "call_id")
		output := outputText(payload["output"])
		if callID == "" && output == "" {
			return nil
		}
		return &retrace.Event{
			ID:        p.eventID(itemType, callID),
			Kind:      retrace.KindToolResult,
			Timestamp: ts,
			Content:   output,
			ToolUseID: callID,
		}

	default:
		return nil
	}
}

func (p *Parser) textEvent(kind retrace.EventKind, ts time.Time, lineKind, text string) *retrace.Event {
	if text == "" {
		return nil
	}
	return &retrace.Event{
		ID:        p.eventID(lineKind, ""),
		Kind:      kind,
		Timestamp: ts,
		Content:   text,
	}
}

// eventID synthesizes a stable per-line ID. The zero-padded line number keeps
// IDs unique and sortable; tool calls append their call_id so the pair of a
// call and its output stays correlatable.
func (p *Parser) eventID(kind, suffix string) string {
	id := fmt.Sprintf("%s:%06d:%s", p.sessionID, p.line, kind)
	if suffix != "" {
		id += ":" + suffix
	}
	return id
}

func parseTimestamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func readString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// messageText joins the text parts of a message content list. Input and
// output variants store their text under different keys.
func messageText(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text := readString(m, "text")
		if text == "" {
			text = readString(m, "input_text")
		}
		if text == "" {
			text = readString(m, "output_text")
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// reasoningText prefers the summary blocks of a reasoning item and falls
// back to its raw text field.
func reasoningText(payload map[string]any) string {
	if summary, ok := payload["summary"].([]any); ok {
		parts := make([]string, 0, len(summary))
		for _, item := range summary {
			m, ok := item.(map[string]any)
			if !ok || readString(m, "type") != "summary_text" {
				continue
			}
			if text := readString(m, "text"); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			return strings.TrimSpace(strings.Join(parts, "\n"))
		}
	}
	return strings.TrimSpace(readString(payload, "text"))
}

// toolArgs decodes a tool invocation payload. function_call carries JSON in
// an "arguments" string; custom_tool_call carries raw text in "input".
// Non-object payloads are wrapped so they stay searchable.
func toolArgs(payload map[string]any) map[string]any {
	if args := readString(payload, "arguments"); args != "" {
		var out any
		if err := sonic.Unmarshal([]byte(args), &out); err == nil {
			if m, ok := out.(map[string]any); ok {
				return m
			}
			if out != nil {
				return map[string]any{"input": out}
			}
		}
		return map[string]any{"input": args}
	}
	if input := readString(payload, "input"); input != "" {
		return map[string]any{"input": input}
	}
	return nil
}

// outputText normalizes a tool output payload to display text.
func outputText(v any) string {
	switch out := v.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(out)
		if trimmed == "" {
			return ""
		}
		// Shell outputs often arrive wrapped in a JSON envelope.
		var wrapped struct {
			Output string `json:"output"`
		}
		if err := sonic.Unmarshal([]byte(trimmed), &wrapped); err == nil && wrapped.Output != "" {
			return wrapped.Output
		}
		return out
	default:
		b, err := json.Marshal(out)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

var pathKeys = []string{"file_path", "path", "notebook_path"}

func filesTouched(input map[string]any) []string {
	if input == nil {
		return nil
	}
	var files []string
	for _, key := range pathKeys {
		if s, ok := input[key].(string); ok && s != "" {
			files = append(files, s)
		}
	}
	return files
}
