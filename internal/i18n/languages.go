package i18n

import (
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// LangInfo describes one available UI language.
type LangInfo struct {
	Tag         string
	Name        string // native name, e.g. "Español"
	EnglishName string
	Active      bool
}

// langNames maps locale tags to display names. Tags without an entry fall
// back to the raw tag.
var langNames = map[string]struct{ native, english string }{
	"en": {"English", "English"},
	"es": {"Español", "Spanish"},
}

// AvailableLanguages lists the bundled locales, sorted by tag. The locale
// matching activeTag (or its base language) is marked active.
func AvailableLanguages(activeTag string) []LangInfo {
	base := activeTag
	if i := strings.IndexByte(base, '-'); i >= 0 {
		base = base[:i]
	}

	entries, _ := localeFS.ReadDir("locales")
	var langs []LangInfo
	for _, e := range entries {
		tag := strings.TrimSuffix(e.Name(), ".toml")
		if tag == e.Name() {
			continue
		}
		info := LangInfo{Tag: tag, Name: tag, EnglishName: tag}
		if n, ok := langNames[tag]; ok {
			info.Name = n.native
			info.EnglishName = n.english
		}
		info.Active = tag == activeTag || tag == base
		langs = append(langs, info)
	}

	sort.Slice(langs, func(i, j int) bool { return langs[i].Tag < langs[j].Tag })
	return langs
}

// previewKeys holds (message ID, English default) pairs shown in the
// language picker preview pane.
var previewKeys = [][2]string{
	{"tui.kind.user", "user"},
	{"tui.kind.assistant", "asst"},
	{"tui.kind.thinking", "think"},
	{"tui.kind.tool", "tool"},
	{"tui.kind.result", "result"},
	{"tui.search.inputTitle", "Search Sessions"},
	{"tui.common.loading", "Loading..."},
	{"common.time.justNow", "just now"},
	{"common.time.oneHourAgo", "1 hour ago"},
	{"common.time.oneDayAgo", "1 day ago"},
	{"tui.timeline.followOn", "following"},
	{"tui.bookmarks.title", "Bookmarks"},
}

// PreviewKeys returns the preview pairs in display order.
func PreviewKeys() [][2]string {
	return previewKeys
}

// PreviewStrings localizes the preview keys for the given tag without
// touching the active localizer.
func PreviewStrings(tag string) map[string]string {
	mu.RLock()
	b := bundle
	mu.RUnlock()

	out := make(map[string]string, len(previewKeys))
	if b == nil {
		for _, kv := range previewKeys {
			out[kv[0]] = kv[1]
		}
		return out
	}

	loc := i18n.NewLocalizer(b, tag, "en")
	for _, kv := range previewKeys {
		s, err := loc.Localize(&i18n.LocalizeConfig{
			DefaultMessage: &i18n.Message{ID: kv[0], Other: kv[1]},
		})
		if err != nil {
			s = kv[1]
		}
		out[kv[0]] = s
	}
	return out
}
