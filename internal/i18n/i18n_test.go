package i18n

import (
	"testing"
)

func TestT_FallsBackToDefault(t *testing.T) {
	Init("en")
	if got := T("test.unknown.key", "fallback text"); got != "fallback text" {
		t.Errorf("T() = %q, want %q", got, "fallback text")
	}
}

func TestTf_FormatsArguments(t *testing.T) {
	Init("en")
	if got := Tf("test.unknown.count", "%d events in %s", 7, "session"); got != "7 events in session" {
		t.Errorf("Tf() = %q, want %q", got, "7 events in session")
	}
}

func TestTn_Pluralization(t *testing.T) {
	Init("en")

	tests := []struct {
		count int
		want  string
	}{
		{1, "1 session"},
		{0, "0 sessions"},
		{5, "5 sessions"},
	}
	for _, tt := range tests {
		got := Tn("test.sessions", "{{.Count}} session", "{{.Count}} sessions", tt.count)
		if got != tt.want {
			t.Errorf("Tn(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestInit_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	Init("xx-nonexistent")
	if got := T("tui.common.loading", "Loading..."); got != "Loading..." {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestResolveLocale(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		configLang string
		want       string
	}{
		{"env wins over config", map[string]string{"RETRACE_LANG": "es"}, "en", "es"},
		{"config wins over LANG", map[string]string{"LANG": "es_ES.UTF-8"}, "en", "en"},
		{"LC_ALL normalized", map[string]string{"LC_ALL": "es_MX.UTF-8"}, "", "es-MX"},
		{"LANG normalized", map[string]string{"LANG": "en_US"}, "", "en-US"},
		{"default", nil, "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"RETRACE_LANG", "LC_ALL", "LANG"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := ResolveLocale(tt.configLang); got != tt.want {
				t.Errorf("ResolveLocale(%q) = %q, want %q", tt.configLang, got, tt.want)
			}
		})
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := []struct{ in, want string }{
		{"zh_CN.UTF-8", "zh-CN"},
		{"en_US", "en-US"},
		{"es", "es"},
		{"C.utf8", "C"},
	}
	for _, tt := range tests {
		if got := normalizeLocale(tt.in); got != tt.want {
			t.Errorf("normalizeLocale(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
