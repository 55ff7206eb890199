package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/retracehq/retrace/internal/index"
	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tuilog"
	"github.com/retracehq/retrace/internal/version"
)

// MCPServer exposes recorded sessions to MCP clients over stdio. It serves
// the same registry as the HTTP API, so an agent can browse and search the
// user's session history through tool calls.
type MCPServer struct {
	server     *mcp.Server
	registry   *retrace.StoreRegistry
	indexPath  string
	allowTools map[string]bool
	denyTools  map[string]bool
}

// NewMCPServer creates an MCP server over the given registry. indexPath
// points at the search catalog; empty means the default location. Tools are
// not registered until SetToolFilters runs.
func NewMCPServer(registry *retrace.StoreRegistry, indexPath string) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "retrace",
		Version: version.Get(),
	}, nil)

	return &MCPServer{
		server:    server,
		registry:  registry,
		indexPath: indexPath,
	}
}

// SetToolFilters configures which tools are allowed or denied and then
// registers the surviving tools.
func (ms *MCPServer) SetToolFilters(allow, deny []string) {
	if len(allow) > 0 {
		ms.allowTools = make(map[string]bool)
		for _, t := range allow {
			ms.allowTools[strings.TrimSpace(t)] = true
		}
	}
	if len(deny) > 0 {
		ms.denyTools = make(map[string]bool)
		for _, t := range deny {
			ms.denyTools[strings.TrimSpace(t)] = true
		}
	}

	ms.registerTools()
}

// isToolAllowed checks if a tool should be registered. Deny wins over allow.
func (ms *MCPServer) isToolAllowed(name string) bool {
	if ms.denyTools != nil && ms.denyTools[name] {
		return false
	}
	if ms.allowTools != nil && !ms.allowTools[name] {
		return false
	}
	return true
}

func (ms *MCPServer) registerTools() {
	if ms.isToolAllowed("list_sources") {
		mcp.AddTool(ms.server, &mcp.Tool{
			Name:        "list_sources",
			Description: "List the configured session sources (claude, codex) and whether each is present on this machine",
		}, ms.handleListSources)
	}

	if ms.isToolAllowed("list_projects") {
		mcp.AddTool(ms.server, &mcp.Tool{
			Name:        "list_projects",
			Description: "List all projects with recorded sessions across all sources, optionally filtered by source",
		}, ms.handleListProjects)
	}

	if ms.isToolAllowed("list_sessions") {
		mcp.AddTool(ms.server, &mcp.Tool{
			Name:        "list_sessions",
			Description: "List recorded sessions for a specific project",
		}, ms.handleListSessions)
	}

	if ms.isToolAllowed("get_session") {
		mcp.AddTool(ms.server, &mcp.Tool{
			Name:        "get_session",
			Description: "Get a session's events with pagination. Content is truncated per event; raise max_content_length for more.",
		}, ms.handleGetSession)
	}

	if ms.isToolAllowed("search_sessions") {
		mcp.AddTool(ms.server, &mcp.Tool{
			Name:        "search_sessions",
			Description: "Search for text across all indexed sessions. Requires the catalog built by `retrace index`. Results are limited to 50 sessions and 2 matches per session by default.",
		}, ms.handleSearchSessions)
	}
}

// Tool input/output types

type listSourcesInput struct{}

type mcpSourceInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	BasePath  string `json:"base_path,omitempty"`
}

type listSourcesOutput struct {
	Sources []mcpSourceInfo `json:"sources"`
}

type listProjectsInput struct {
	Source string `json:"source,omitempty"` // Filter by source
}

type mcpProjectInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	SessionCount int    `json:"session_count"`
	Source       string `json:"source"`
	PathExists   bool   `json:"path_exists"`
}

type listProjectsOutput struct {
	Projects []mcpProjectInfo `json:"projects"`
}

type listSessionsInput struct {
	ProjectID string `json:"project_id"`
	Source    string `json:"source,omitempty"` // Restrict the lookup to one source
}

type mcpSessionInfo struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	FirstPrompt string `json:"first_prompt,omitempty"`
	Summary     string `json:"summary,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	ModifiedAt  string `json:"modified_at,omitempty"`
	EventCount  int    `json:"event_count"`
	GitBranch   string `json:"git_branch,omitempty"`
	Model       string `json:"model,omitempty"`
	Source      string `json:"source"`
}

type listSessionsOutput struct {
	Sessions []mcpSessionInfo `json:"sessions"`
}

type getSessionInput struct {
	Source           string `json:"source"`
	SessionID        string `json:"session_id"`
	Limit            int    `json:"limit,omitempty"`              // Default 20
	Offset           int    `json:"offset,omitempty"`             // Skip this many events
	MaxContentLength int    `json:"max_content_length,omitempty"` // Default 500 characters per event
}

type mcpEventContent struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"text,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
	Model     string `json:"model,omitempty"`
}

type getSessionOutput struct {
	Meta     mcpSessionInfo    `json:"meta"`
	Events   []mcpEventContent `json:"events"`
	Total    int               `json:"total"`
	Returned int               `json:"returned"`
	HasMore  bool              `json:"has_more"`
}

type searchSessionsInput struct {
	Query           string `json:"query"`
	Project         string `json:"project,omitempty"`
	Source          string `json:"source,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	LimitPerSession int    `json:"limit_per_session,omitempty"`
	Regex           bool   `json:"regex,omitempty"`
	CaseSensitive   bool   `json:"case_sensitive,omitempty"`
}

type searchSessionsOutput struct {
	Results []index.SessionResult `json:"results"`
	Total   int                   `json:"total"`
}

// Tool handlers

func (ms *MCPServer) handleListSources(ctx context.Context, req *mcp.CallToolRequest, _ listSourcesInput) (*mcp.CallToolResult, listSourcesOutput, error) {
	status := ms.registry.SourceStatus(ctx)
	sources := make([]mcpSourceInfo, 0, len(status))
	for _, info := range status {
		sources = append(sources, mcpSourceInfo{
			Name:      string(info.Source),
			Available: info.Available,
			BasePath:  info.BasePath,
		})
	}
	output := listSourcesOutput{Sources: sources}
	return toolResult(output), output, nil
}

func (ms *MCPServer) handleListProjects(ctx context.Context, req *mcp.CallToolRequest, input listProjectsInput) (*mcp.CallToolResult, listProjectsOutput, error) {
	projects, err := ms.registry.ListAllProjects(ctx)
	if err != nil {
		return nil, listProjectsOutput{}, err
	}
	infos := make([]mcpProjectInfo, 0, len(projects))
	for _, p := range projects {
		if input.Source != "" && string(p.Source) != input.Source {
			continue
		}
		infos = append(infos, mcpProjectInfo{
			ID:           p.ID,
			Name:         p.Name,
			Path:         p.Path,
			SessionCount: p.SessionCount,
			Source:       string(p.Source),
			PathExists:   p.PathExists,
		})
	}
	output := listProjectsOutput{Projects: infos}
	return toolResult(output), output, nil
}

func (ms *MCPServer) handleListSessions(ctx context.Context, req *mcp.CallToolRequest, input listSessionsInput) (*mcp.CallToolResult, listSessionsOutput, error) {
	stores := ms.registry.All()
	if input.Source != "" {
		store, ok := ms.registry.Get(retrace.Source(input.Source))
		if !ok {
			return nil, listSessionsOutput{}, fmt.Errorf("unknown source %q", input.Source)
		}
		stores = []retrace.Store{store}
	}

	var metas []retrace.SessionMeta
	for _, store := range stores {
		sessions, err := store.ListSessions(ctx, input.ProjectID)
		if err != nil {
			continue
		}
		metas = append(metas, sessions...)
	}

	infos := make([]mcpSessionInfo, len(metas))
	for i, m := range metas {
		infos[i] = sessionMetaInfo(m)
	}
	output := listSessionsOutput{Sessions: infos}
	return toolResult(output), output, nil
}

func (ms *MCPServer) handleGetSession(ctx context.Context, req *mcp.CallToolRequest, input getSessionInput) (*mcp.CallToolResult, getSessionOutput, error) {
	store, ok := ms.registry.Get(retrace.Source(input.Source))
	if !ok {
		return nil, getSessionOutput{}, fmt.Errorf("unknown source %q", input.Source)
	}
	sess, err := store.LoadSession(ctx, input.SessionID)
	if err != nil {
		return nil, getSessionOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	maxLen := input.MaxContentLength
	if maxLen <= 0 {
		maxLen = 500
	}

	total := len(sess.Events)
	events := sess.Events
	if input.Offset > 0 {
		if input.Offset >= len(events) {
			events = nil
		} else {
			events = events[input.Offset:]
		}
	}
	hasMore := false
	if limit < len(events) {
		events = events[:limit]
		hasMore = true
	}

	rows := make([]mcpEventContent, len(events))
	for i, ev := range events {
		text := retrace.TruncateString(ev.Content, maxLen)
		rows[i] = mcpEventContent{
			Index:     input.Offset + i,
			ID:        ev.ID,
			Kind:      string(ev.Kind),
			Text:      text,
			Truncated: len(text) < len(ev.Content),
			ToolName:  ev.ToolName,
			ToolUseID: ev.ToolUseID,
			IsError:   ev.IsError,
			Model:     ev.Model,
		}
		if !ev.Timestamp.IsZero() {
			rows[i].Timestamp = ev.Timestamp.Format(time.RFC3339)
		}
	}

	output := getSessionOutput{
		Meta:     sessionMetaInfo(sess.Meta),
		Events:   rows,
		Total:    total,
		Returned: len(rows),
		HasMore:  hasMore,
	}
	return toolResult(output), output, nil
}

func (ms *MCPServer) handleSearchSessions(ctx context.Context, req *mcp.CallToolRequest, input searchSessionsInput) (*mcp.CallToolResult, searchSessionsOutput, error) {
	path := ms.indexPath
	if path == "" {
		p, err := index.DefaultPath()
		if err != nil {
			return nil, searchSessionsOutput{}, err
		}
		path = p
	}
	db, err := index.OpenReadOnly(path)
	if err != nil {
		// Missing catalog included; the wrapped error tells the caller
		// to run `retrace index`.
		return nil, searchSessionsOutput{}, err
	}
	defer db.Close()

	opts := index.DefaultOptions()
	opts.Query = input.Query
	opts.Project = input.Project
	opts.Source = input.Source
	opts.Regex = input.Regex
	opts.CaseSensitive = input.CaseSensitive
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	if input.LimitPerSession > 0 {
		opts.PerSession = input.LimitPerSession
	}

	results, total, err := index.NewService(db).Search(ctx, opts)
	if err != nil {
		return nil, searchSessionsOutput{}, err
	}
	output := searchSessionsOutput{Results: results, Total: total}
	return toolResult(output), output, nil
}

func sessionMetaInfo(m retrace.SessionMeta) mcpSessionInfo {
	info := mcpSessionInfo{
		ID:          m.ID,
		Path:        m.FullPath,
		FirstPrompt: m.FirstPrompt,
		Summary:     m.Summary,
		EventCount:  m.EventCount,
		GitBranch:   m.GitBranch,
		Model:       m.Model,
		Source:      string(m.Source),
	}
	if !m.CreatedAt.IsZero() {
		info.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	}
	if !m.ModifiedAt.IsZero() {
		info.ModifiedAt = m.ModifiedAt.Format(time.RFC3339)
	}
	return info
}

func toolResult(v any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: formatJSON(v)}},
	}
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// RunStdio serves MCP over stdin/stdout until ctx is cancelled. Protocol
// traffic is mirrored to the debug log when one is configured; stdout must
// stay clean for the protocol itself.
func (ms *MCPServer) RunStdio(ctx context.Context) error {
	if tuilog.Log.Enabled() {
		return ms.server.Run(ctx, &mcp.LoggingTransport{
			Transport: &mcp.StdioTransport{},
			Writer:    tuilog.Log.Writer(),
		})
	}
	return ms.server.Run(ctx, &mcp.StdioTransport{})
}
