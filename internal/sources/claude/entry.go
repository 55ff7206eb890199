package claude

import (
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
)

// EntryType identifies the type of a raw trace entry.
type EntryType string

const (
	EntryTypeUser                EntryType = "user"
	EntryTypeAssistant           EntryType = "assistant"
	EntryTypeSystem              EntryType = "system"
	EntryTypeProgress            EntryType = "progress"
	EntryTypeFileHistorySnapshot EntryType = "file-history-snapshot"
	EntryTypeSummary             EntryType = "summary"
	EntryTypeQueueOperation      EntryType = "queue-operation"
)

// Entry is one line of a Claude Code JSONL trace file. The on-disk format
// mixes several record shapes in a single stream, so the struct is a superset;
// fields that do not apply to an entry's type stay zero-valued.
type Entry struct {
	Type        EntryType       `json:"type"`
	UUID        string          `json:"uuid,omitempty"`
	ParentUUID  *string         `json:"parentUuid,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Version     string          `json:"version,omitempty"`
	GitBranch   string          `json:"gitBranch,omitempty"`
	CWD         string          `json:"cwd,omitempty"`
	IsSidechain bool            `json:"isSidechain,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`

	// User entries
	IsMeta           bool            `json:"isMeta,omitempty"`
	IsCompactSummary bool            `json:"isCompactSummary,omitempty"`
	ToolUseResult    json.RawMessage `json:"toolUseResult,omitempty"`

	// Assistant entries
	RequestID         string `json:"requestId,omitempty"`
	IsApiErrorMessage bool   `json:"isApiErrorMessage,omitempty"`

	// System and queue-operation entries
	Subtype string `json:"subtype,omitempty"`
	Level   string `json:"level,omitempty"`
	Content string `json:"content,omitempty"`

	// Summary entries
	Summary  string `json:"summary,omitempty"`
	LeafUUID string `json:"leafUuid,omitempty"`

	userMessage      *UserMessage
	assistantMessage *AssistantMessage
	messageParsed    bool
}

// UserMessage returns the parsed message of a user entry, decoding the raw
// payload on first access. Nil for other entry types or undecodable payloads.
func (e *Entry) UserMessage() *UserMessage {
	e.parseMessage()
	return e.userMessage
}

// AssistantMessage returns the parsed message of an assistant entry, decoding
// the raw payload on first access.
func (e *Entry) AssistantMessage() *AssistantMessage {
	e.parseMessage()
	return e.assistantMessage
}

func (e *Entry) parseMessage() {
	if e.messageParsed || len(e.Message) == 0 {
		return
	}
	e.messageParsed = true

	switch e.Type {
	case EntryTypeUser:
		var msg UserMessage
		if err := sonic.Unmarshal(e.Message, &msg); err == nil {
			e.userMessage = &msg
		}
	case EntryTypeAssistant:
		var msg AssistantMessage
		if err := sonic.Unmarshal(e.Message, &msg); err == nil {
			e.assistantMessage = &msg
		}
	}
}

// Time parses the entry timestamp. Zero when absent or malformed.
func (e *Entry) Time() time.Time {
	if e.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FirstPromptText returns the prompt text of a user entry, empty for other
// entry types, meta entries, and tool-result-only turns.
func (e *Entry) FirstPromptText() string {
	if e.Type != EntryTypeUser || e.IsMeta {
		return ""
	}
	msg := e.UserMessage()
	if msg == nil {
		return ""
	}
	return msg.Content.PlainText()
}

// UserMessage is the message payload of a user entry.
type UserMessage struct {
	Role    string      `json:"role"`
	Content UserContent `json:"content"`
}

// UserContent is the polymorphic content of a user message: either a bare
// string or a list of content blocks.
type UserContent struct {
	Text   string
	Blocks []ContentBlock
}

func (c *UserContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		c.Blocks = blocks
		return nil
	}
	// Unknown shape, leave empty rather than failing the whole entry.
	return nil
}

func (c UserContent) MarshalJSON() ([]byte, error) {
	if c.Text != "" {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// PlainText joins the text blocks of the content, skipping tool results
// and media.
func (c *UserContent) PlainText() string {
	if c.Text != "" {
		return c.Text
	}
	var text string
	for _, b := range c.Blocks {
		if b.Type == "text" && b.Text != "" {
			if text != "" {
				text += "\n"
			}
			text += b.Text
		}
	}
	return text
}

// AssistantMessage is the message payload of an assistant entry.
type AssistantMessage struct {
	Role       string         `json:"role"`
	Model      string         `json:"model,omitempty"`
	ID         string         `json:"id,omitempty"`
	Content    []ContentBlock `json:"content,omitempty"`
	StopReason *string        `json:"stop_reason,omitempty"`
	Usage      *Usage         `json:"usage,omitempty"`
}

// Usage is the token accounting attached to an assistant message.
type Usage struct {
	InputTokens              int `json:"input_tokens,omitempty"`
	OutputTokens             int `json:"output_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// ContentBlock is one block of a message. The populated fields depend on Type.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`

	// tool_use
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`

	// tool_result; content is a string or a nested block list
	ToolUseID   string          `json:"tool_use_id,omitempty"`
	ToolContent json.RawMessage `json:"content,omitempty"`
	IsError     bool            `json:"is_error,omitempty"`
}

// resultText flattens a tool_result content payload to display text.
func resultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var text string
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				if text != "" {
					text += "\n"
				}
				text += b.Text
			}
		}
		return text
	}
	return ""
}
