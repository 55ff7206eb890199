package claude

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/retracehq/retrace/internal/retrace"
)

// Project is a Claude Code project directory under <base>/projects.
type Project struct {
	DirName      string    // raw directory name, e.g. "-home-sam-src-api"
	DisplayName  string    // last path element, e.g. "api"
	FullPath     string    // decoded working directory, e.g. "/home/sam/src/api"
	DirPath      string    // absolute path of the project directory
	SessionCount int       // number of JSONL trace files
	LastModified time.Time // newest trace file mtime
}

// SessionMeta is lightweight per-session metadata, assembled from directory
// stats and, when present, the sessions-index.json sidecar.
type SessionMeta struct {
	SessionID    string    `json:"sessionId"`
	FullPath     string    `json:"fullPath"`
	FirstPrompt  string    `json:"firstPrompt"`
	Summary      string    `json:"summary"`
	Model        string    `json:"model,omitempty"`
	MessageCount int       `json:"messageCount"`
	Created      time.Time `json:"-"`
	Modified     time.Time `json:"-"`
	GitBranch    string    `json:"gitBranch"`
	ProjectPath  string    `json:"projectPath"`
	FileSize     int64     `json:"-"`
}

// indexEntry wraps SessionMeta with the string timestamps the index file uses.
type indexEntry struct {
	SessionMeta
	CreatedStr  string `json:"created"`
	ModifiedStr string `json:"modified"`
	FileMtime   int64  `json:"fileMtime"`
}

// sessionsIndex mirrors the sessions-index.json sidecar format.
type sessionsIndex struct {
	Version      int          `json:"version"`
	Entries      []indexEntry `json:"entries"`
	OriginalPath string       `json:"originalPath"`
}

// DefaultBasePath returns the Claude data directory: RETRACE_CLAUDE_HOME when
// set (even if the path does not exist yet, so callers can report it), else
// ~/.claude when present, else empty.
func DefaultBasePath() string {
	if home := os.Getenv("RETRACE_CLAUDE_HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".claude")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ""
	}
	return dir
}

// ProjectsDir returns the projects directory under baseDir, falling back to
// the default base path when baseDir is empty.
func ProjectsDir(baseDir string) (string, error) {
	if baseDir == "" {
		baseDir = DefaultBasePath()
	}
	if baseDir == "" {
		return "", errors.New("claude data directory not found")
	}
	return filepath.Join(baseDir, "projects"), nil
}

// DecodeDirName converts an encoded project directory name back to a display
// name and working directory path. The encoding replaces path separators with
// "-" (leading "-" is the Unix root; on Windows a single-letter first segment
// is a drive letter), which makes a literal hyphen in a directory name
// ambiguous. The naive decode is checked against the filesystem first; when
// it does not exist the path is rebuilt segment by segment, keeping a hyphen
// wherever the separator variant does not name a real directory.
func DecodeDirName(dirName string) (displayName string, fullPath string) {
	if dirName == "-" {
		return "~", ""
	}

	var segments []string
	var prefix string
	sep := string(filepath.Separator)
	if strings.HasPrefix(dirName, "-") {
		segments = strings.Split(dirName[1:], "-")
		prefix = sep
	} else {
		segments = strings.Split(dirName, "-")
		if runtime.GOOS == "windows" && len(segments) > 0 && len(segments[0]) == 1 {
			prefix = segments[0] + ":" + sep
			segments = segments[1:]
		}
	}

	fullPath = prefix + strings.Join(segments, sep)
	if _, err := os.Stat(fullPath); err == nil {
		return filepath.Base(fullPath), fullPath
	}

	rebuilt := prefix + segments[0]
	for i := 1; i < len(segments); i++ {
		withHyphen := rebuilt + "-" + segments[i]
		withSep := rebuilt + sep + segments[i]

		if _, err := os.Stat(withSep); err == nil {
			rebuilt = withSep
		} else if _, err := os.Stat(withHyphen); err == nil {
			rebuilt = withHyphen
		} else {
			rebuilt = withSep
		}
	}

	return filepath.Base(rebuilt), rebuilt
}

// ListProjects enumerates the project directories under baseDir (default base
// path when empty). The user's home directory and directories without trace
// files are skipped.
func ListProjects(baseDir string) ([]Project, error) {
	projectsDir, err := ProjectsDir(baseDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	homeDir, _ := os.UserHomeDir()

	var projects []Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(projectsDir, entry.Name())
		displayName, fullPath := DecodeDirName(entry.Name())
		if fullPath == "" {
			fullPath = homeDir
		}

		// The index sidecar records the original path verbatim, which
		// beats reconstructing it from the encoded name.
		if data, err := os.ReadFile(filepath.Join(dirPath, "sessions-index.json")); err == nil {
			var idx sessionsIndex
			if sonic.Unmarshal(data, &idx) == nil && idx.OriginalPath != "" {
				fullPath = idx.OriginalPath
				displayName = filepath.Base(fullPath)
			}
		}

		if homeDir != "" && fullPath == homeDir {
			continue
		}

		sessionCount := 0
		var lastModified time.Time
		if dirEntries, err := os.ReadDir(dirPath); err == nil {
			for _, de := range dirEntries {
				if de.IsDir() || !strings.HasSuffix(de.Name(), ".jsonl") {
					continue
				}
				sessionCount++
				if info, err := de.Info(); err == nil && info.ModTime().After(lastModified) {
					lastModified = info.ModTime()
				}
			}
		}
		if sessionCount == 0 {
			continue
		}

		projects = append(projects, Project{
			DirName:      entry.Name(),
			DisplayName:  displayName,
			FullPath:     fullPath,
			DirPath:      dirPath,
			SessionCount: sessionCount,
			LastModified: lastModified,
		})
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].DisplayName < projects[j].DisplayName
	})
	return projects, nil
}

// ListProjectSessions returns session metadata for one project directory.
// The directory listing is authoritative (the index sidecar goes stale when
// sessions are added mid-conversation); index entries only enrich it.
func ListProjectSessions(projectDir string) ([]SessionMeta, error) {
	sessions, err := statSessions(projectDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(projectDir, "sessions-index.json"))
	if err != nil {
		return sessions, nil
	}
	var idx sessionsIndex
	if err := sonic.Unmarshal(data, &idx); err != nil {
		return sessions, nil
	}

	byID := make(map[string]SessionMeta)
	for _, m := range parseIndexEntries(idx.Entries, projectDir) {
		byID[m.SessionID] = m
	}
	for i, s := range sessions {
		rich, ok := byID[s.SessionID]
		if !ok {
			continue
		}
		if !rich.Created.IsZero() {
			sessions[i].Created = rich.Created
		}
		if !rich.Modified.IsZero() {
			sessions[i].Modified = rich.Modified
		}
		if rich.FirstPrompt != "" {
			sessions[i].FirstPrompt = rich.FirstPrompt
		}
		if rich.Model != "" {
			sessions[i].Model = rich.Model
		}
		if rich.Summary != "" {
			sessions[i].Summary = rich.Summary
		}
		if rich.GitBranch != "" {
			sessions[i].GitBranch = rich.GitBranch
		}
		if rich.MessageCount > 0 {
			sessions[i].MessageCount = rich.MessageCount
		}
		if rich.ProjectPath != "" {
			sessions[i].ProjectPath = rich.ProjectPath
		}
	}
	return sessions, nil
}

// ListProjectSessionsBackfill additionally opens trace files that are missing
// a first prompt or a real model name and scans their head for both. Costs a
// file read per backfilled session; use it for display listings only.
func ListProjectSessionsBackfill(projectDir string) ([]SessionMeta, error) {
	sessions, err := ListProjectSessions(projectDir)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].FullPath == "" {
			continue
		}
		if sessions[i].FirstPrompt != "" && retrace.IsRealModel(sessions[i].Model) {
			continue
		}
		prompt, model := scanHints(sessions[i].FullPath)
		if sessions[i].FirstPrompt == "" {
			sessions[i].FirstPrompt = prompt
		}
		if !retrace.IsRealModel(sessions[i].Model) {
			sessions[i].Model = model
		}
	}
	return sessions, nil
}

func parseIndexEntries(entries []indexEntry, projectDir string) []SessionMeta {
	var sessions []SessionMeta
	for _, e := range entries {
		meta := e.SessionMeta

		if e.CreatedStr != "" {
			if t, err := time.Parse(time.RFC3339, e.CreatedStr); err == nil {
				meta.Created = t
			}
		}
		if e.ModifiedStr != "" {
			if t, err := time.Parse(time.RFC3339, e.ModifiedStr); err == nil {
				meta.Modified = t
			}
		}
		if meta.Modified.IsZero() && e.FileMtime > 0 {
			meta.Modified = time.UnixMilli(e.FileMtime)
		}

		if meta.FullPath == "" && meta.SessionID != "" {
			meta.FullPath = filepath.Join(projectDir, meta.SessionID+".jsonl")
		}
		if meta.FullPath != "" && meta.FileSize == 0 {
			if info, err := os.Stat(meta.FullPath); err == nil {
				meta.FileSize = info.Size()
			}
		}

		sessions = append(sessions, meta)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Created.Before(sessions[j].Created)
	})
	return sessions
}

func statSessions(projectDir string) ([]SessionMeta, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, err
	}

	var sessions []SessionMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		meta := SessionMeta{
			SessionID: strings.TrimSuffix(entry.Name(), ".jsonl"),
			FullPath:  filepath.Join(projectDir, entry.Name()),
		}
		if info, err := entry.Info(); err == nil {
			meta.Modified = info.ModTime()
			meta.Created = info.ModTime() // best guess without an index
			meta.FileSize = info.Size()
		}
		sessions = append(sessions, meta)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Created.Before(sessions[j].Created)
	})
	return sessions, nil
}

// scanHints reads the head of a trace file for the first prompt and first
// real model name. At most 50 lines are examined to keep listings cheap.
func scanHints(path string) (firstPrompt, model string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	scanner := retrace.NewScannerWithMaxCapacityCustom(f, 64*1024, 1024*1024)
	for i := 0; i < 50 && scanner.Scan(); i++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// Substring prefilter keeps full decode off most lines.
		if firstPrompt == "" && strings.Contains(string(line), `"type":"user"`) {
			var entry Entry
			if sonic.Unmarshal(line, &entry) == nil {
				firstPrompt = entry.FirstPromptText()
			}
		}
		if !retrace.IsRealModel(model) && strings.Contains(string(line), `"type":"assistant"`) {
			var entry Entry
			if sonic.Unmarshal(line, &entry) == nil && entry.Type == EntryTypeAssistant {
				if msg := entry.AssistantMessage(); msg != nil && retrace.IsRealModel(msg.Model) {
					model = msg.Model
				}
			}
		}

		if firstPrompt != "" && retrace.IsRealModel(model) {
			break
		}
	}
	return firstPrompt, model
}
