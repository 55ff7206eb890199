package claude

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/retracehq/retrace/internal/retrace"
)

// Parser streams entries out of a JSONL trace. Lines that fail to decode are
// skipped and recorded, not fatal; trace files are appended to by a live tool
// and the last line is often truncated mid-write.
type Parser struct {
	scanner *bufio.Scanner
	line    int
	errs    []error
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{scanner: retrace.NewScannerWithMaxCapacity(r)}
}

// NextEntry returns the next decodable entry, or io.EOF at end of stream.
func (p *Parser) NextEntry() (*Entry, error) {
	for p.scanner.Scan() {
		p.line++
		line := p.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := sonic.Unmarshal(line, &entry); err != nil {
			p.errs = append(p.errs, fmt.Errorf("line %d: %w", p.line, err))
			continue
		}
		return &entry, nil
	}
	if err := p.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAll consumes the stream and returns every decodable entry.
func (p *Parser) ReadAll() ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := p.NextEntry()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, *entry)
	}
}

// Line returns the number of lines consumed so far.
func (p *Parser) Line() int {
	return p.line
}

// Errors returns the decode errors encountered while skipping lines.
func (p *Parser) Errors() []error {
	return p.errs
}

// Session is a fully read trace file plus the metadata scattered through it.
type Session struct {
	ID        string
	Path      string
	GitBranch string
	Version   string
	CWD       string
	Model     string
	Summary   string
	StartTime time.Time
	EndTime   time.Time
	Entries   []Entry
}

// Events flattens the session's entries into transcript events.
func (s *Session) Events() []retrace.Event {
	return FlattenAll(s.Entries)
}

// ReadSessionFile reads a whole trace file and collects session metadata from
// its entries. The session ID falls back to the file name stem when no entry
// carries one.
func ReadSessionFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := NewParser(f)
	entries, err := p.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	s := &Session{Path: path, Entries: entries}
	for i := range entries {
		e := &entries[i]
		if s.ID == "" && e.SessionID != "" {
			s.ID = e.SessionID
		}
		if s.GitBranch == "" && e.GitBranch != "" {
			s.GitBranch = e.GitBranch
		}
		if s.Version == "" && e.Version != "" {
			s.Version = e.Version
		}
		if s.CWD == "" && e.CWD != "" {
			s.CWD = e.CWD
		}
		if e.Type == EntryTypeSummary && e.Summary != "" {
			s.Summary = e.Summary
		}
		if !retrace.IsRealModel(s.Model) && e.Type == EntryTypeAssistant {
			if msg := e.AssistantMessage(); msg != nil && retrace.IsRealModel(msg.Model) {
				s.Model = msg.Model
			}
		}
		if ts := e.Time(); !ts.IsZero() {
			if s.StartTime.IsZero() || ts.Before(s.StartTime) {
				s.StartTime = ts
			}
			if ts.After(s.EndTime) {
				s.EndTime = ts
			}
		}
	}
	if s.ID == "" {
		s.ID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	return s, nil
}
