// Package i18n provides internationalization support for retrace.
//
// Usage:
//
//	i18n.Init("en")                                  // at startup
//	i18n.T("tui.common.loading", "Loading...")       // simple string
//	i18n.Tf("tui.toc.title", "Contents (%d)", n)     // with fmt args
//	i18n.Tn("tui.search.matchCount", "{{.Count}} match", "{{.Count}} matches", n)
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
)

// Init initializes the i18n system with the given language tag.
// Falls back to English if the language is not available.
// Safe to call multiple times (e.g., after config reload).
func Init(lang string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, _ := localeFS.ReadDir("locales")
	for _, e := range entries {
		_, _ = b.LoadMessageFileFS(localeFS, "locales/"+e.Name())
	}

	mu.Lock()
	bundle = b
	localizer = i18n.NewLocalizer(b, lang, "en")
	mu.Unlock()
}

// activeLocalizer returns the current localizer, nil before Init.
func activeLocalizer() *i18n.Localizer {
	mu.RLock()
	defer mu.RUnlock()
	return localizer
}

// T returns the localized string for the given message ID.
// The defaultMsg is used as the English fallback and is what
// goi18n extract picks up from source code.
func T(id string, defaultMsg string) string {
	l := activeLocalizer()
	if l == nil {
		return defaultMsg
	}

	s, err := l.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{ID: id, Other: defaultMsg},
	})
	if err != nil {
		return defaultMsg
	}
	return s
}

// Tf returns the localized string with fmt.Sprintf-style formatting.
// Use for strings with %d, %s, etc. placeholders.
func Tf(id string, defaultMsg string, args ...any) string {
	return fmt.Sprintf(T(id, defaultMsg), args...)
}

// Tn returns the localized string with pluralization.
// one/other use go template syntax with {{.Count}}.
func Tn(id string, one string, other string, count int) string {
	l := activeLocalizer()
	if l == nil {
		return pluralFallback(one, other, count)
	}

	s, err := l.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{ID: id, One: one, Other: other},
		PluralCount:    count,
		TemplateData:   map[string]int{"Count": count},
	})
	if err != nil {
		return pluralFallback(one, other, count)
	}
	return s
}

// pluralFallback renders the default plural template without a localizer.
func pluralFallback(one, other string, count int) string {
	msg := other
	if count == 1 {
		msg = one
	}
	return strings.ReplaceAll(msg, "{{.Count}}", strconv.Itoa(count))
}

// ResolveLocale determines the active locale from env/config.
// Priority: RETRACE_LANG > configLang > LC_ALL/LANG > "en"
func ResolveLocale(configLang string) string {
	if v := os.Getenv("RETRACE_LANG"); v != "" {
		return v
	}
	if configLang != "" {
		return configLang
	}
	for _, env := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(env); v != "" {
			return normalizeLocale(v)
		}
	}
	return "en"
}

// normalizeLocale converts POSIX locale format to BCP 47.
// e.g., "zh_CN.UTF-8" -> "zh-CN", "en_US" -> "en-US"
func normalizeLocale(posix string) string {
	locale, _, _ := strings.Cut(posix, ".")
	return strings.ReplaceAll(locale, "_", "-")
}
