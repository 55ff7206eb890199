package theme

import (
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

// SampleEvents returns a short synthetic transcript used to preview a
// theme, one event per kind.
func SampleEvents() []retrace.Event {
	now := time.Now()
	return []retrace.Event{
		{
			ID:        "sample-user",
			Kind:      retrace.KindUser,
			Timestamp: now,
			Content:   "Can you help me understand how this code works?",
		},
		{
			ID:        "sample-thinking",
			Kind:      retrace.KindThinking,
			Timestamp: now.Add(1 * time.Second),
			Content:   "Let me analyze the code structure and identify the key components...",
		},
		{
			ID:        "sample-assistant",
			Kind:      retrace.KindAssistant,
			Timestamp: now.Add(2 * time.Second),
			Content:   "I'll explain the code structure. Let me first read the main file to understand the architecture.",
		},
		{
			ID:        "sample-tool-use",
			Kind:      retrace.KindToolUse,
			Timestamp: now.Add(3 * time.Second),
			ToolName:  "Read",
			ToolInput: map[string]any{"file_path": "/src/main.go"},
			ToolUseID: "toolu_01ABC",
		},
		{
			ID:        "sample-tool-result",
			Kind:      retrace.KindToolResult,
			Timestamp: now.Add(4 * time.Second),
			Content:   "package main\n\nfunc main() {\n    // ...\n}",
			ToolUseID: "toolu_01ABC",
		},
		{
			ID:        "sample-assistant-2",
			Kind:      retrace.KindAssistant,
			Timestamp: now.Add(5 * time.Second),
			Content:   "This is a simple Go application with a main function. The structure follows standard Go conventions.",
		},
	}
}

// SampleSession wraps SampleEvents in session metadata for previews.
func SampleSession() *retrace.Session {
	events := SampleEvents()
	return &retrace.Session{
		Meta: retrace.SessionMeta{
			ID:          "sample-session",
			ProjectPath: "/example/project",
			FullPath:    "/example/project/session.jsonl",
			FirstPrompt: "Can you help me understand how this code works?",
			EventCount:  len(events),
			CreatedAt:   time.Now(),
			ModifiedAt:  time.Now(),
			Source:      retrace.SourceClaude,
		},
		Events: events,
	}
}
