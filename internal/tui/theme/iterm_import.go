package theme

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// plistReader walks the XML token stream of an iTerm2 plist. The format is
// a top-level <dict> of scheme color names, each mapping to a nested <dict>
// of float components.
type plistReader struct {
	dec *xml.Decoder
}

// next returns the local name of the next start element, or io.EOF.
func (p *plistReader) next() (string, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// seek skips forward until a start element named name.
func (p *plistReader) seek(name string) error {
	for {
		got, err := p.next()
		if err != nil {
			return err
		}
		if got == name {
			return nil
		}
	}
}

// text collects character data up to the current element's end tag.
func (p *plistReader) text() (string, error) {
	var buf strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			return strings.TrimSpace(buf.String()), nil
		}
	}
}

// colorDict reads one nested color <dict>, returning its component values
// keyed by name ("Red Component" etc). Non-real values are ignored.
func (p *plistReader) colorDict() (map[string]float64, error) {
	comps := make(map[string]float64)
	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "key" {
				continue
			}
			key, err := p.text()
			if err != nil {
				return nil, err
			}
			tag, err := p.next()
			if err != nil {
				continue
			}
			val, err := p.text()
			if err != nil {
				return nil, err
			}
			if tag != "real" {
				continue
			}
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				comps[key] = f
			}
		case xml.EndElement:
			if t.Name.Local == "dict" {
				depth--
			}
		}
	}
	return comps, nil
}

// ParseItermColors parses an iTerm2 .itermcolors plist XML file and returns
// a map of color names to RGB float64 triples (0.0-1.0).
func ParseItermColors(r io.Reader) (map[string][3]float64, error) {
	p := &plistReader{dec: xml.NewDecoder(r)}

	if err := p.seek("dict"); err != nil {
		return nil, fmt.Errorf("plist: missing top-level dict: %w", err)
	}

	colors := make(map[string][3]float64)
	for {
		tag, err := p.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("plist: %w", err)
		}
		if tag != "key" {
			continue
		}

		name, err := p.text()
		if err != nil {
			return nil, err
		}
		if err := p.seek("dict"); err != nil {
			continue // value is not a color dict, skip
		}
		comps, err := p.colorDict()
		if err != nil {
			return nil, fmt.Errorf("plist: color %q: %w", name, err)
		}
		colors[name] = [3]float64{
			comps["Red Component"],
			comps["Green Component"],
			comps["Blue Component"],
		}
	}

	if len(colors) == 0 {
		return nil, fmt.Errorf("plist: no colors found")
	}
	return colors, nil
}

// floatToHex converts 0.0-1.0 RGB floats to a hex color string.
func floatToHex(rgb [3]float64) string {
	channel := func(v float64) int {
		return int(math.Round(math.Min(math.Max(v, 0), 1) * 255))
	}
	return RGBToHex(channel(rgb[0]), channel(rgb[1]), channel(rgb[2]))
}

// ImportIterm converts an iTerm2 .itermcolors file into a retrace Theme.
func ImportIterm(r io.Reader, name string) (Theme, error) {
	colors, err := ParseItermColors(r)
	if err != nil {
		return Theme{}, err
	}

	get := func(key string) string {
		if c, ok := colors[key]; ok {
			return floatToHex(c)
		}
		return "#888888"
	}

	bg := get("Background Color")
	fg := get("Foreground Color")

	// ANSI color assignments:
	// 0=black 1=red 2=green 3=yellow 4=blue 5=magenta 6=cyan 7=white
	// 8-15 = bright variants
	ansi := func(n int) string {
		return get(fmt.Sprintf("Ansi %d Color", n))
	}

	accent := ansi(12)       // bright blue
	textSecondary := ansi(8) // bright black (gray)

	t := Theme{
		Name:        name,
		Description: fmt.Sprintf("Imported from %s iTerm2 color scheme", name),

		Accent:         accent,
		BorderActive:   accent,
		BorderInactive: ansi(8),

		TextPrimary:   Style{Fg: fg},
		TextSecondary: Style{Fg: textSecondary},
		TextMuted:     Style{Fg: BlendColors(ansi(8), bg, 0.4)},

		UserLabel:       Style{Fg: ansi(4), Bold: true},
		UserBlock:       Style{Fg: fg, Bg: BlendColors(bg, ansi(4), 0.15)},
		AssistantLabel:  Style{Fg: ansi(2), Bold: true},
		AssistantBlock:  Style{Fg: fg, Bg: BlendColors(bg, ansi(2), 0.15)},
		ThinkingLabel:   Style{Fg: ansi(5), Bold: true},
		ThinkingBlock:   Style{Fg: BlendColors(fg, ansi(5), 0.3), Bg: BlendColors(bg, ansi(5), 0.12), Italic: true},
		ToolLabel:       Style{Fg: ansi(3), Bold: true},
		ToolCallBlock:   Style{Fg: BlendColors(fg, ansi(3), 0.3), Bg: BlendColors(bg, ansi(3), 0.12)},
		ToolResultBlock: Style{Fg: BlendColors(fg, ansi(6), 0.3), Bg: BlendColors(bg, ansi(6), 0.12)},

		Highlight: Style{Fg: ContrastColor(ansi(11)), Bg: ansi(11), Bold: true},

		ConfirmPrompt:     Style{Fg: fg},
		ConfirmSelected:   Style{Bg: accent, Fg: ContrastColor(accent)},
		ConfirmUnselected: Style{Fg: BlendColors(ansi(8), bg, 0.4)},
	}

	return t, nil
}
