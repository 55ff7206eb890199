// Package cli provides CLI output formatting utilities.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/tui/theme"
)

// ThemeDisplay handles theme visualization in the terminal.
type ThemeDisplay struct {
	w     io.Writer
	theme theme.Theme
}

// NewThemeDisplay creates a new theme display formatter.
func NewThemeDisplay(w io.Writer, t theme.Theme) *ThemeDisplay {
	return &ThemeDisplay{w: w, theme: t}
}

// swatch is one displayed color: a label, the hex value, and a rendered
// sample. Background colors carry their block's foreground so the sample
// stays readable.
type swatch struct {
	label  string
	hex    string
	sample string
	fg     string // set for background swatches
}

func fgSwatch(label, hex, sample string) swatch {
	return swatch{label: label, hex: hex, sample: sample}
}

func bgSwatch(label string, s theme.Style, sample string) swatch {
	fg := s.Fg
	if fg == "" {
		fg = "#ffffff"
	}
	return swatch{label: label, hex: s.Bg, sample: sample, fg: fg}
}

func (s swatch) render() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.hex))
	if s.fg != "" {
		style = lipgloss.NewStyle().
			Background(lipgloss.Color(s.hex)).
			Foreground(lipgloss.Color(s.fg))
	}
	return style.Render(s.sample)
}

// sections lays out the palette in display order.
func (d *ThemeDisplay) sections() []struct {
	title    string
	swatches []swatch
} {
	t := d.theme
	return []struct {
		title    string
		swatches []swatch
	}{
		{"Accent", []swatch{
			fgSwatch("Accent", t.GetAccent(), "▌Active Border"),
			fgSwatch("BorderActive", t.GetBorderActive(), "▌Active Border"),
			fgSwatch("BorderInactive", t.GetBorderInactive(), "│ Inactive Border"),
		}},
		{"Text", []swatch{
			fgSwatch("TextPrimary", t.TextPrimary.Fg, "Primary Text"),
			fgSwatch("TextSecondary", t.TextSecondary.Fg, "Secondary info text"),
			fgSwatch("TextMuted", t.TextMuted.Fg, "Muted help text"),
		}},
		{"Blocks", []swatch{
			bgSwatch("UserBlock", t.UserBlock, " User message "),
			bgSwatch("AssistantBlock", t.AssistantBlock, " Assistant response "),
			bgSwatch("ThinkingBlock", t.ThinkingBlock, " Thinking... "),
			bgSwatch("ToolCallBlock", t.ToolCallBlock, " Tool: Read file "),
			bgSwatch("ToolResultBlock", t.ToolResultBlock, " Result: success "),
		}},
		{"Labels", []swatch{
			fgSwatch("UserLabel", t.UserLabel.Fg, "USER"),
			fgSwatch("AssistantLabel", t.AssistantLabel.Fg, "ASSISTANT"),
			fgSwatch("ThinkingLabel", t.ThinkingLabel.Fg, "THINKING"),
			fgSwatch("ToolLabel", t.ToolLabel.Fg, "TOOL"),
		}},
		{"Confirm", []swatch{
			fgSwatch("ConfirmPrompt", t.ConfirmPrompt.Fg, "Delete this file?"),
			bgSwatch("ConfirmSelected", t.ConfirmSelected, " Yes "),
			fgSwatch("ConfirmUnselected", t.ConfirmUnselected.Fg, " No "),
		}},
	}
}

// Show displays the current theme with styled samples.
func (d *ThemeDisplay) Show() error {
	t := d.theme

	fmt.Fprintf(d.w, "Active Theme: %s\n", theme.ActiveName())
	if t.Description != "" {
		fmt.Fprintf(d.w, "Description:  %s\n", t.Description)
	}
	themesDir, _ := theme.ThemesDir()
	fmt.Fprintf(d.w, "Themes Dir:   %s\n\n", themesDir)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.GetAccent()))
	labelStyle := lipgloss.NewStyle().Width(20)
	hexStyle := lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color(t.TextMuted.Fg))

	for i, sec := range d.sections() {
		if i > 0 {
			fmt.Fprintln(d.w)
		}
		fmt.Fprintf(d.w, "%s\n", titleStyle.Render(sec.title))
		fmt.Fprintf(d.w, "%s\n", strings.Repeat("─", len(sec.title)+2))
		for _, s := range sec.swatches {
			fmt.Fprintf(d.w, "  %s %s %s\n",
				labelStyle.Render(s.label),
				hexStyle.Render(s.hex),
				s.render(),
			)
		}
	}

	fmt.Fprintln(d.w)
	return nil
}

// ShowJSON displays the theme as a flat JSON object of dotted color keys,
// in palette order.
func (d *ThemeDisplay) ShowJSON() error {
	t := d.theme

	type kv struct{ key, value string }
	pairs := []kv{
		{"name", t.Name},
		{"description", t.Description},
		{"accent", t.GetAccent()},
		{"border_active", t.GetBorderActive()},
		{"border_inactive", t.GetBorderInactive()},
		{"text_primary.fg", t.TextPrimary.Fg},
		{"text_secondary.fg", t.TextSecondary.Fg},
		{"text_muted.fg", t.TextMuted.Fg},
	}

	blocks := []struct {
		key   string
		style theme.Style
	}{
		{"user_block", t.UserBlock},
		{"assistant_block", t.AssistantBlock},
		{"thinking_block", t.ThinkingBlock},
		{"tool_call_block", t.ToolCallBlock},
		{"tool_result_block", t.ToolResultBlock},
	}
	for _, b := range blocks {
		pairs = append(pairs,
			kv{b.key + ".fg", b.style.Fg},
			kv{b.key + ".bg", b.style.Bg})
	}

	pairs = append(pairs,
		kv{"user_label.fg", t.UserLabel.Fg},
		kv{"assistant_label.fg", t.AssistantLabel.Fg},
		kv{"thinking_label.fg", t.ThinkingLabel.Fg},
		kv{"tool_label.fg", t.ToolLabel.Fg},
		kv{"confirm_prompt.fg", t.ConfirmPrompt.Fg},
		kv{"confirm_selected.fg", t.ConfirmSelected.Fg},
		kv{"confirm_selected.bg", t.ConfirmSelected.Bg},
		kv{"confirm_unselected.fg", t.ConfirmUnselected.Fg},
	)

	fmt.Fprintf(d.w, "{\n")
	for i, p := range pairs {
		comma := ","
		if i == len(pairs)-1 {
			comma = ""
		}
		fmt.Fprintf(d.w, "  %q: %q%s\n", p.key, p.value, comma)
	}
	fmt.Fprintf(d.w, "}\n")
	return nil
}

// ListThemes displays all available themes.
func ListThemes(w io.Writer) error {
	themes, err := theme.ListAvailable()
	if err != nil {
		return err
	}
	activeName := theme.ActiveName()

	fmt.Fprintln(w, "Available Themes:")
	fmt.Fprintln(w)
	for _, t := range themes {
		marker := "  "
		if t.Name == activeName {
			marker = "* "
		}
		source := "built-in"
		if !t.Embedded {
			source = "user"
		}
		fmt.Fprintf(w, "%s%-12s  %-10s  %s\n", marker, t.Name, "("+source+")", t.Description)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Active theme marked with *\n")
	fmt.Fprintf(w, "Use 'retrace themes set <name>' to change theme\n")
	return nil
}

// ListThemesJSON writes the available themes as JSON, marking the active one.
func ListThemesJSON(w io.Writer) error {
	themes, err := theme.ListAvailable()
	if err != nil {
		return err
	}
	activeName := theme.ActiveName()

	type themeJSON struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Embedded    bool   `json:"embedded"`
		Active      bool   `json:"active"`
	}

	out := make([]themeJSON, len(themes))
	for i, t := range themes {
		out[i] = themeJSON{
			Name:        t.Name,
			Description: t.Description,
			Embedded:    t.Embedded,
			Active:      t.Name == activeName,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
