package cmd

import "testing"

func setCORSFlag(t *testing.T, value string) {
	t.Helper()
	old := serveCORSOrigin
	serveCORSOrigin = value
	t.Cleanup(func() { serveCORSOrigin = old })
}

func TestResolveCORSOrigin_FlagWins(t *testing.T) {
	setCORSFlag(t, "http://localhost:3000")
	t.Setenv("RETRACE_CORS_ORIGIN", "http://ignored")

	if got := resolveCORSOrigin(); got != "http://localhost:3000" {
		t.Errorf("expected flag value, got %q", got)
	}
}

func TestResolveCORSOrigin_EnvFallback(t *testing.T) {
	setCORSFlag(t, "")
	t.Setenv("RETRACE_CORS_ORIGIN", "https://example.com")

	if got := resolveCORSOrigin(); got != "https://example.com" {
		t.Errorf("expected env value, got %q", got)
	}
}

func TestResolveCORSOrigin_Default(t *testing.T) {
	setCORSFlag(t, "")
	t.Setenv("RETRACE_CORS_ORIGIN", "")

	if got := resolveCORSOrigin(); got != "*" {
		t.Errorf("expected *, got %q", got)
	}
}
