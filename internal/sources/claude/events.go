package claude

import (
	"fmt"

	"github.com/retracehq/retrace/internal/retrace"
)

// Flatten converts one raw entry into flat transcript events. Assistant
// entries fan out into separate thinking, text and tool_use events; user
// entries yield a prompt event and one event per tool result. Entry types
// that carry no transcript content (system, progress, snapshots, summaries)
// yield nothing.
//
// ord is the zero-based line ordinal, used to synthesize an ID for the rare
// entry that carries no UUID. IDs are deterministic for a given file: the
// first event of an entry keeps the entry UUID, derived events append the
// block's tool id or index.
func Flatten(e *Entry, ord int) []retrace.Event {
	base := e.UUID
	if base == "" {
		base = fmt.Sprintf("line%d", ord)
	}

	switch e.Type {
	case EntryTypeUser:
		return flattenUser(e, base)
	case EntryTypeAssistant:
		return flattenAssistant(e, base)
	default:
		return nil
	}
}

// FlattenAll converts a full entry list into transcript events in file order.
func FlattenAll(entries []Entry) []retrace.Event {
	var events []retrace.Event
	for i := range entries {
		events = append(events, Flatten(&entries[i], i)...)
	}
	return events
}

func flattenUser(e *Entry, base string) []retrace.Event {
	msg := e.UserMessage()
	if msg == nil {
		return nil
	}
	ts := e.Time()

	var events []retrace.Event
	if text := msg.Content.PlainText(); text != "" && !e.IsMeta {
		events = append(events, retrace.Event{
			ID:        base,
			Kind:      retrace.KindUser,
			Timestamp: ts,
			Content:   text,
		})
	}
	for i, b := range msg.Content.Blocks {
		if b.Type != "tool_result" {
			continue
		}
		id := base + ":" + b.ToolUseID
		if b.ToolUseID == "" {
			id = fmt.Sprintf("%s:r%d", base, i)
		}
		events = append(events, retrace.Event{
			ID:        id,
			Kind:      retrace.KindToolResult,
			Timestamp: ts,
			Content:   resultText(b.ToolContent),
			ToolUseID: b.ToolUseID,
			IsError:   b.IsError,
		})
	}
	return events
}

func flattenAssistant(e *Entry, base string) []retrace.Event {
	msg := e.AssistantMessage()
	if msg == nil {
		return nil
	}
	ts := e.Time()

	var events []retrace.Event
	sawText := false
	for i, b := range msg.Content {
		var ev retrace.Event
		switch b.Type {
		case "thinking":
			if b.Thinking == "" {
				continue
			}
			ev = retrace.Event{
				ID:      fmt.Sprintf("%s:t%d", base, i),
				Kind:    retrace.KindThinking,
				Content: b.Thinking,
			}
		case "text":
			if b.Text == "" {
				continue
			}
			id := base
			if sawText {
				id = fmt.Sprintf("%s:x%d", base, i)
			}
			sawText = true
			ev = retrace.Event{
				ID:      id,
				Kind:    retrace.KindAssistant,
				Content: b.Text,
			}
		case "tool_use":
			id := base + ":" + b.ID
			if b.ID == "" {
				id = fmt.Sprintf("%s:u%d", base, i)
			}
			input := toolInputMap(b.Input)
			ev = retrace.Event{
				ID:            id,
				Kind:          retrace.KindToolUse,
				ToolName:      b.Name,
				ToolInput:     input,
				ToolUseID:     b.ID,
				FilesAffected: filesTouched(input),
			}
		default:
			continue
		}
		ev.Timestamp = ts
		ev.Model = msg.Model
		if len(events) == 0 {
			// Token usage is per entry, attach it once to avoid
			// double counting when summing over events.
			ev.Usage = convertUsage(msg.Usage)
		}
		events = append(events, ev)
	}
	return events
}

// toolInputMap normalizes a decoded tool_use input to a map. Non-object
// payloads are wrapped so their content survives in searchable form.
func toolInputMap(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"input": v}
}

// filesTouched pulls file path arguments out of a tool input.
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

func convertUsage(u *Usage) *retrace.TokenUsage {
	if u == nil {
		return nil
	}
	return &retrace.TokenUsage{
		InputTokens:              u.InputTokens,
		OutputTokens:             u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
}
