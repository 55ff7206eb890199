package export

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/retracehq/retrace/internal/retrace"
)

const maxSlugLen = 48

// SanitizeFilename turns an arbitrary string into a name safe for a file
// on any platform: path separators, control characters and Windows-reserved
// punctuation become hyphens, whitespace collapses to single hyphens, and
// the result is trimmed and capped. An empty result falls back to "session".
func SanitizeFilename(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r < 0x20 || r == 0x7f,
			unicode.IsSpace(r):
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	s := strings.Trim(b.String(), "-.")
	if runes := []rune(s); len(runes) > maxSlugLen {
		s = strings.Trim(string(runes[:maxSlugLen]), "-.")
	}
	if s == "" {
		return "session"
	}
	return s
}

// DefaultFilename builds the default export name for a session:
// a sanitized title slug, a short session id, a timestamp, and the
// format's extension.
func DefaultFilename(meta retrace.SessionMeta, format Format, now time.Time) string {
	title := meta.Summary
	if title == "" {
		title = meta.FirstPrompt
	}
	slug := SanitizeFilename(title)

	id := meta.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if id != "" {
		slug += "-" + id
	}

	return fmt.Sprintf("%s-%s.%s", slug, now.Format("20060102-150405"), format.Ext())
}
