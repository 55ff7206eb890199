// Package retrace provides a unified interface for accessing recorded AI
// coding assistant sessions (Claude Code, Codex CLI, etc.)
package retrace

import (
	"context"
	"time"
)

// Source identifies the AI coding assistant that recorded the data.
type Source string

const (
	SourceClaude Source = "claude"
	SourceCodex  Source = "codex"
)

// EventKind identifies one recorded step of a session transcript.
type EventKind string

const (
	KindUser       EventKind = "user"
	KindAssistant  EventKind = "assistant"
	KindToolUse    EventKind = "tool_use"
	KindToolResult EventKind = "tool_result"
	KindThinking   EventKind = "thinking"
)

// Kinds lists every event kind in display order.
func Kinds() []EventKind {
	return []EventKind{KindUser, KindAssistant, KindToolUse, KindToolResult, KindThinking}
}

// Event is a single step of a session transcript. Sessions are stored as an
// ordered Event list; tool invocations, tool outputs and reasoning blocks are
// flattened into their own events rather than nested inside messages.
type Event struct {
	// ID is opaque and unique, stable within a session.
	ID   string    `json:"id"`
	Kind EventKind `json:"kind"`

	// Timestamp may be zero when the source format carries none.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Content holds free text: the message body, reasoning text, or tool
	// output depending on Kind.
	Content string `json:"content,omitempty"`

	// ToolName is set only for tool_use events.
	ToolName string `json:"tool_name,omitempty"`

	// ToolInput is the structured invocation payload for tool_use events.
	ToolInput map[string]any `json:"tool_input,omitempty"`

	// ToolUseID links a tool_result back to the tool_use that produced it.
	ToolUseID string `json:"tool_use_id,omitempty"`

	// IsError marks a failed tool_result.
	IsError bool `json:"is_error,omitempty"`

	// FilesAffected lists file paths touched by a tool call, in input order.
	FilesAffected []string `json:"files_affected,omitempty"`

	// Model and Usage are populated on assistant events when the source
	// records them.
	Model string      `json:"model,omitempty"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// TokenUsage records token consumption for an assistant turn.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens,omitempty"`
	OutputTokens             int `json:"output_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// SessionMeta contains metadata about a session without loading full content.
type SessionMeta struct {
	ID          string    `json:"id"`
	ProjectPath string    `json:"project_path"` // normalized project path
	FullPath    string    `json:"full_path"`    // path to session file
	FirstPrompt string    `json:"first_prompt,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	EventCount  int       `json:"event_count"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
	GitBranch   string    `json:"git_branch,omitempty"`
	Model       string    `json:"model,omitempty"`
	Source      Source    `json:"source"`
	FileSize    int64     `json:"file_size,omitempty"`
}

// Session is a complete recorded transcript.
type Session struct {
	Meta   SessionMeta `json:"meta"`
	Events []Event     `json:"events"`
}

// Project represents a working directory containing multiple sessions.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`         // full filesystem path
	DisplayPath  string    `json:"display_path"` // human-readable path
	SessionCount int       `json:"session_count"`
	LastModified time.Time `json:"last_modified"`
	Source       Source    `json:"source"`
	PathExists   bool      `json:"path_exists"`
}

// SourceInfo describes the availability of a single source.
type SourceInfo struct {
	Source    Source `json:"source"`
	Available bool   `json:"available"`
	BasePath  string `json:"base_path,omitempty"`
}

// SessionFilter provides criteria for narrowing session listings.
type SessionFilter struct {
	ProjectPath string
	GitBranch   string
	Source      Source
	After       *time.Time
	Before      *time.Time
	Limit       int
}

// Store provides access to projects and sessions recorded by a single source.
type Store interface {
	// Source returns the type of this store (claude, codex).
	Source() Source

	// BasePath returns the root storage directory this store reads from.
	BasePath() string

	// ListProjects returns all available projects.
	ListProjects(ctx context.Context) ([]Project, error)

	// GetProject returns a specific project by ID or path.
	GetProject(ctx context.Context, id string) (*Project, error)

	// ListSessions returns sessions for a project.
	ListSessions(ctx context.Context, projectID string) ([]SessionMeta, error)

	// GetSessionMeta returns session metadata without loading events.
	GetSessionMeta(ctx context.Context, sessionID string) (*SessionMeta, error)

	// LoadSession loads a complete session with all events.
	// Use with caution on large sessions.
	LoadSession(ctx context.Context, sessionID string) (*Session, error)

	// OpenSession returns a reader for streaming session events.
	// Preferred for large sessions or when only partial access is needed.
	OpenSession(ctx context.Context, sessionID string) (SessionReader, error)
}

// SessionReader provides streaming access to session events.
type SessionReader interface {
	// ReadNext returns the next event, or io.EOF when done.
	ReadNext() (*Event, error)

	// Metadata returns session metadata.
	Metadata() SessionMeta

	// Close releases any resources.
	Close() error
}

// ResumeInfo describes how to relaunch the recording tool on a session.
type ResumeInfo struct {
	Command string   // absolute path to the binary
	Args    []string // argv, including argv[0]
	Dir     string   // working directory the tool expects
}

// SessionResumer is implemented by stores whose tool supports resuming a
// recorded session in place.
type SessionResumer interface {
	ResumeCommand(meta SessionMeta) (*ResumeInfo, error)
}

// WatchConfig tells a filesystem watcher which parts of a store's base path
// carry session data worth following.
type WatchConfig struct {
	// IncludeDirs are subdirectories of BasePath to watch recursively.
	// Empty means watch BasePath itself.
	IncludeDirs []string

	// ExcludeDirs are directory names to skip at any depth.
	ExcludeDirs []string

	// MaxDepth bounds recursion below each included dir. 0 means unlimited.
	MaxDepth int
}

// Watchable is implemented by stores that support live session watching.
type Watchable interface {
	WatchConfig() WatchConfig
}

// LazySession extends SessionReader with windowed loading capabilities.
type LazySession interface {
	SessionReader

	// HasMore returns true if there are more events to load.
	HasMore() bool

	// LoadMore loads additional events up to a content limit.
	// Returns the number of new events loaded.
	LoadMore(maxContentBytes int) (int, error)

	// LoadAll loads all remaining events.
	LoadAll() error

	// Progress returns loading progress (0.0 to 1.0).
	Progress() float64
}
