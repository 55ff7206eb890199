// Package colorpicker provides an embeddable terminal color picker.
//
// The picker has three input modes: RGB sliders, direct hex entry, and a
// palette grid. Hosts feed it key strings and read Confirmed/Cancelled:
//
//	case tea.KeyMsg:
//	    m.picker.HandleKey(msg.String())
//	    if m.picker.Confirmed {
//	        color := m.picker.Value()
//	    }
package colorpicker

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
)

// Mode selects the active input mode.
type Mode int

const (
	ModeSliders Mode = iota
	ModeHex
	ModePalette
)

// Channel identifies an RGB channel in slider mode.
type Channel int

const (
	ChannelR Channel = iota
	ChannelG
	ChannelB
)

const sliderWidth = 24

// Model is the color picker state.
type Model struct {
	R, G, B int

	// Original color, restored on reset or cancel.
	OrigR, OrigG, OrigB int

	Mode         Mode
	Channel      Channel
	HexInput     string
	HexCursor    int
	PaletteIndex int
	ColorIndex   int

	AccentColor string
	MutedColor  string

	Confirmed bool
	Cancelled bool
}

// New creates a picker initialized to the given hex color.
func New(hexColor string) Model {
	r, g, b := HexToRGB(hexColor)
	return Model{
		R: r, G: g, B: b,
		OrigR: r, OrigG: g, OrigB: b,
		HexInput:    hexColor,
		AccentColor: "#7D56F4",
		MutedColor:  "#666666",
	}
}

// Value returns the current color as a hex string.
func (m Model) Value() string {
	return RGBToHex(m.R, m.G, m.B)
}

// Reset restores the original color.
func (m *Model) Reset() {
	m.R, m.G, m.B = m.OrigR, m.OrigG, m.OrigB
	m.HexInput = m.Value()
}

// HandleKey processes a key press. It returns true if the key was consumed.
func (m *Model) HandleKey(key string) bool {
	switch key {
	case "enter":
		m.Confirmed = true
		return true
	case "esc":
		m.Cancelled = true
		return true
	case "r":
		m.Reset()
		return true
	case "tab":
		m.Mode = (m.Mode + 1) % 3
		if m.Mode == ModeHex {
			m.HexInput = m.Value()
			m.HexCursor = len(m.HexInput)
		}
		return true
	}

	switch m.Mode {
	case ModeSliders:
		return m.handleSliderKey(key)
	case ModeHex:
		return m.handleHexKey(key)
	case ModePalette:
		return m.handlePaletteKey(key)
	}
	return false
}

func (m *Model) handleSliderKey(key string) bool {
	switch key {
	case "up", "k":
		if m.Channel > ChannelR {
			m.Channel--
		}
		return true
	case "down", "j":
		if m.Channel < ChannelB {
			m.Channel++
		}
		return true
	case "left", "h":
		m.adjustChannel(-13) // ~5% of the range
		return true
	case "right", "l":
		m.adjustChannel(13)
		return true
	case "H":
		m.adjustChannel(-1)
		return true
	case "L":
		m.adjustChannel(1)
		return true
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n, _ := strconv.Atoi(key)
		m.setChannel(n * 255 / 9)
		return true
	}
	return false
}

func (m *Model) adjustChannel(delta int) {
	m.setChannel(clamp(m.channelValue()+delta, 0, 255))
}

func (m *Model) channelValue() int {
	switch m.Channel {
	case ChannelG:
		return m.G
	case ChannelB:
		return m.B
	default:
		return m.R
	}
}

func (m *Model) setChannel(val int) {
	switch m.Channel {
	case ChannelG:
		m.G = val
	case ChannelB:
		m.B = val
	default:
		m.R = val
	}
	m.HexInput = m.Value()
}

func (m *Model) handleHexKey(key string) bool {
	switch key {
	case "left":
		if m.HexCursor > 0 {
			m.HexCursor--
		}
		return true
	case "right":
		if m.HexCursor < len(m.HexInput) {
			m.HexCursor++
		}
		return true
	case "backspace":
		if m.HexCursor > 0 {
			m.HexInput = m.HexInput[:m.HexCursor-1] + m.HexInput[m.HexCursor:]
			m.HexCursor--
			m.tryParseHex()
		}
		return true
	case "delete":
		if m.HexCursor < len(m.HexInput) {
			m.HexInput = m.HexInput[:m.HexCursor] + m.HexInput[m.HexCursor+1:]
			m.tryParseHex()
		}
		return true
	}

	if len(key) == 1 && isHexChar(key[0]) && len(m.HexInput) < 7 {
		m.HexInput = m.HexInput[:m.HexCursor] + key + m.HexInput[m.HexCursor:]
		m.HexCursor++
		m.tryParseHex()
		return true
	}
	if key == "#" && m.HexCursor == 0 && !strings.HasPrefix(m.HexInput, "#") {
		m.HexInput = "#" + m.HexInput
		m.HexCursor++
		return true
	}
	return false
}

func (m *Model) tryParseHex() {
	if IsValidHex(m.HexInput) {
		m.R, m.G, m.B = HexToRGB(m.HexInput)
	}
}

func (m *Model) handlePaletteKey(key string) bool {
	switch key {
	case "up", "k":
		if m.ColorIndex >= 4 {
			m.ColorIndex -= 4
		}
		return true
	case "down", "j":
		if m.ColorIndex < 12 {
			m.ColorIndex += 4
		}
		return true
	case "left", "h":
		if m.ColorIndex > 0 {
			m.ColorIndex--
		}
		return true
	case "right", "l":
		if m.ColorIndex < 15 {
			m.ColorIndex++
		}
		return true
	case "[", "p":
		m.PaletteIndex--
		if m.PaletteIndex < 0 {
			m.PaletteIndex = len(Palettes) - 1
		}
		return true
	case "]", "n":
		m.PaletteIndex = (m.PaletteIndex + 1) % len(Palettes)
		return true
	case " ":
		color := Palettes[m.PaletteIndex].Colors[m.ColorIndex]
		m.R, m.G, m.B = HexToRGB(color)
		m.HexInput = color
		return true
	}
	return false
}

// View renders the picker.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.AccentColor))
	b.WriteString(titleStyle.Render("Color Picker") + "\n\n")

	current := m.Value()
	preview := lipgloss.NewStyle().
		Background(lipgloss.Color(current)).
		Foreground(lipgloss.Color(contrastColor(m.R, m.G, m.B))).
		Padding(0, 4).
		Render(current)

	orig := RGBToHex(m.OrigR, m.OrigG, m.OrigB)
	origPreview := lipgloss.NewStyle().
		Background(lipgloss.Color(orig)).
		Foreground(lipgloss.Color(ContrastColorHex(orig))).
		Padding(0, 2).
		Render("orig")

	b.WriteString("Current: " + preview + "  " + origPreview + "\n\n")
	b.WriteString(m.renderModeTabs() + "\n\n")

	switch m.Mode {
	case ModeSliders:
		b.WriteString(m.renderSliders())
	case ModeHex:
		b.WriteString(m.renderHexInput())
	case ModePalette:
		b.WriteString(m.renderPalette())
	}

	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.MutedColor))
	b.WriteString(helpStyle.Render(m.help()))

	return b.String()
}

func (m Model) renderModeTabs() string {
	tabs := []string{"Sliders", "Hex", "Palette"}
	parts := make([]string, 0, len(tabs))

	for i, tab := range tabs {
		style := lipgloss.NewStyle().Padding(0, 1)
		if Mode(i) == m.Mode {
			style = style.Bold(true).
				Foreground(lipgloss.Color("#000000")).
				Background(lipgloss.Color(m.AccentColor))
		} else {
			style = style.Foreground(lipgloss.Color(m.MutedColor))
		}
		parts = append(parts, style.Render(tab))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderSliders() string {
	var b strings.Builder

	for ch := ChannelR; ch <= ChannelB; ch++ {
		var name, fillHex string
		var val int
		switch ch {
		case ChannelR:
			name, val = "R", m.R
			fillHex = fmt.Sprintf("#%02x0000", val)
		case ChannelG:
			name, val = "G", m.G
			fillHex = fmt.Sprintf("#00%02x00", val)
		case ChannelB:
			name, val = "B", m.B
			fillHex = fmt.Sprintf("#0000%02x", val)
		}

		indicator := " "
		if m.Channel == ch {
			indicator = "▸"
		}

		filled := val * sliderWidth / 255
		bar := lipgloss.NewStyle().Background(lipgloss.Color(fillHex)).Render(strings.Repeat(" ", filled)) +
			lipgloss.NewStyle().Background(lipgloss.Color("#333333")).Render(strings.Repeat(" ", sliderWidth-filled))

		valStyle := lipgloss.NewStyle()
		if m.Channel == ch {
			valStyle = valStyle.Bold(true).Foreground(lipgloss.Color(m.AccentColor))
		}

		fmt.Fprintf(&b, "%s %s: %s %s\n", indicator, name, bar, valStyle.Render(fmt.Sprintf("%3d", val)))
	}
	return b.String()
}

func (m Model) renderHexInput() string {
	var b strings.Builder

	b.WriteString("Enter hex color:\n\n")

	cursorStyle := lipgloss.NewStyle().
		Background(lipgloss.Color(m.AccentColor)).
		Foreground(lipgloss.Color("#000000"))

	var input string
	for i, ch := range m.HexInput {
		if i == m.HexCursor {
			input += cursorStyle.Render(string(ch))
		} else {
			input += string(ch)
		}
	}
	if m.HexCursor >= len(m.HexInput) {
		input += cursorStyle.Render(" ")
	}

	inputStyle := lipgloss.NewStyle().Background(lipgloss.Color("#333333")).Padding(0, 1)
	b.WriteString(inputStyle.Render(input) + "\n\n")

	if IsValidHex(m.HexInput) {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b")).Render("✓ Valid hex color"))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Render("Format: #RRGGBB"))
	}
	return b.String()
}

func (m Model) renderPalette() string {
	var b strings.Builder

	palette := Palettes[m.PaletteIndex]
	navStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.MutedColor))
	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.AccentColor))

	b.WriteString(navStyle.Render("[p] ◀ ") + nameStyle.Render(palette.Name) + navStyle.Render(" ▶ [n]") + "\n\n")

	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			idx := row*4 + col
			color := palette.Colors[idx]

			style := lipgloss.NewStyle().
				Background(lipgloss.Color(color)).
				Width(5).
				Align(lipgloss.Center)

			content := "  "
			if idx == m.ColorIndex {
				style = style.Foreground(lipgloss.Color(ContrastColorHex(color))).Bold(true)
				content = "▪▪"
			}

			b.WriteString(style.Render(content))
			if col < 3 {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.MutedColor))
	b.WriteString(infoStyle.Render(fmt.Sprintf("Selected: %s (space to apply)", palette.Colors[m.ColorIndex])))
	return b.String()
}

func (m Model) help() string {
	switch m.Mode {
	case ModeHex:
		return "type hex • ←/→: cursor • r: reset • tab: mode • enter: ok • esc: cancel"
	case ModePalette:
		return "↑/↓/←/→: select • p/n: palette • space: apply • r: reset • tab: mode • enter: ok • esc: cancel"
	default:
		return "↑/↓: channel • h/l: ±5% • H/L: ±1 • 0-9: set • r: reset • tab: mode • enter: ok • esc: cancel"
	}
}

// HexToRGB converts a #RRGGBB string to RGB values. Invalid input yields
// mid gray.
func HexToRGB(hex string) (int, int, int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 128, 128, 128
	}
	r, _ := strconv.ParseInt(hex[1:3], 16, 64)
	g, _ := strconv.ParseInt(hex[3:5], 16, 64)
	b, _ := strconv.ParseInt(hex[5:7], 16, 64)
	return int(r), int(g), int(b)
}

// RGBToHex converts RGB values to a #RRGGBB string.
func RGBToHex(r, g, b int) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ContrastColorHex returns black or white, whichever reads better on the
// given hex color.
func ContrastColorHex(hex string) string {
	r, g, b := HexToRGB(hex)
	return contrastColor(r, g, b)
}

func contrastColor(r, g, b int) string {
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#000000"
	}
	return "#ffffff"
}

// IsValidHex reports whether s is a 7-character #RRGGBB color.
func IsValidHex(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for i := 1; i < 7; i++ {
		if !isHexChar(s[i]) {
			return false
		}
	}
	return true
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func isHexChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
