// Command gen-themes regenerates the embedded theme JSON files from curated
// iTerm2 color schemes.
//
// Usage:
//
//	go run cmd/gen-themes/main.go
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/retracehq/retrace/internal/tui/theme"
)

const schemesURL = "https://raw.githubusercontent.com/mbadolato/iTerm2-Color-Schemes/master/schemes/"

// curated maps upstream scheme filenames (without .itermcolors) to the
// kebab-case theme names shipped with retrace.
var curated = map[string]string{
	"Dracula":                "dracula",
	"Nord":                   "nord",
	"Gruvbox Dark":           "gruvbox-dark",
	"Gruvbox Light":          "gruvbox-light",
	"Catppuccin Mocha":       "catppuccin-mocha",
	"Catppuccin Latte":       "catppuccin-latte",
	"Solarized Dark Patched": "solarized-dark",
	"iTerm2 Solarized Light": "solarized-light",
	"Rose Pine":              "rose-pine",
	"TokyoNight":             "tokyo-night",
	"Atom One Dark":          "one-dark",
	"Monokai Soda":           "monokai",
}

func main() {
	outDir := filepath.Join("internal", "tui", "theme", "themes")
	failed := 0
	for upstream, name := range curated {
		fmt.Printf("%-20s ", name)
		if err := generate(upstream, name, outDir); err != nil {
			fmt.Println(err)
			failed++
			continue
		}
		fmt.Println("OK")
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d scheme(s) failed\n", failed)
		os.Exit(1)
	}
}

// generate fetches one upstream scheme, converts it, and writes the theme
// JSON into outDir.
func generate(upstream, name, outDir string) error {
	resp, err := http.Get(schemesURL + url.PathEscape(upstream+".itermcolors"))
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch: HTTP %d", resp.StatusCode)
	}

	t, err := theme.ImportIterm(resp.Body, name)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	path := filepath.Join(outDir, name+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
