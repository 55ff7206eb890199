package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
)

// messageIDPattern matches T("key.id"), Tf("key.id") and Tn("key.id")
// calls, with or without the i18n. package qualifier. IDs need at least two
// dot-separated segments so dynamically built keys like T("tui."+name) are
// left out.
var messageIDPattern = regexp.MustCompile(
	`\b(?:i18n\.)?T[fn]?\("([a-zA-Z][a-zA-Z0-9]*(?:\.[a-zA-Z][a-zA-Z0-9]*)+)"`)

// TestTranslationCoverage compares the message IDs referenced from source
// against each non-English locale bundle. Missing keys are reported but do
// not fail the test; partially translated locales are expected while
// strings churn.
func TestTranslationCoverage(t *testing.T) {
	root, err := findProjectRoot()
	if err != nil {
		t.Fatalf("finding project root: %v", err)
	}

	used, err := messageIDsInSource(root)
	if err != nil {
		t.Fatalf("scanning source: %v", err)
	}
	if len(used) == 0 {
		t.Fatal("no message IDs found in source, extraction pattern is broken")
	}
	ids := sortedKeys(used)
	t.Logf("source references %d message IDs", len(ids))

	localeDir := filepath.Join(root, "internal", "i18n", "locales")
	entries, err := os.ReadDir(localeDir)
	if err != nil {
		t.Fatalf("reading locales dir: %v", err)
	}

	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".toml") || name == "en.toml" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			translated, err := localeTableHeaders(filepath.Join(localeDir, name))
			if err != nil {
				t.Fatal(err)
			}

			var missing []string
			for _, id := range ids {
				if !translated[id] {
					missing = append(missing, id)
				}
			}

			covered := len(ids) - len(missing)
			t.Logf("%d/%d translated (%.1f%%)", covered, len(ids),
				float64(covered)/float64(len(ids))*100)
			for _, id := range missing {
				t.Logf("missing: %s", id)
			}
		})
	}
}

// messageIDsInSource walks internal/ and cmd/ collecting message IDs from
// non-test Go files.
func messageIDsInSource(root string) (map[string]bool, error) {
	ids := make(map[string]bool)
	for _, dir := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			for _, m := range messageIDPattern.FindAllSubmatch(data, -1) {
				ids[string(m[1])] = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// localeTableHeaders extracts the [section.key] headers from a locale file.
func localeTableHeaders(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "[[") {
			if key := strings.Trim(line, "[] "); key != "" {
				keys[key] = true
			}
		}
	}
	return keys, nil
}

// findProjectRoot walks up from the working directory to the module root.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
