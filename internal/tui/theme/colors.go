package theme

import (
	"fmt"
	"math"
	"strconv"
)

// HexToRGB converts a hex color string to RGB values.
func HexToRGB(hex string) (int, int, int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 128, 128, 128
	}
	r, _ := strconv.ParseInt(hex[1:3], 16, 64)
	g, _ := strconv.ParseInt(hex[3:5], 16, 64)
	b, _ := strconv.ParseInt(hex[5:7], 16, 64)
	return int(r), int(g), int(b)
}

// RGBToHex converts RGB values to a hex color string.
func RGBToHex(r, g, b int) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ContrastColor returns black or white depending on the luminance of the
// given hex color.
func ContrastColor(hex string) string {
	r, g, b := HexToRGB(hex)
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#000000"
	}
	return "#ffffff"
}

// IsValidHex returns true if the string is a valid 7-character hex color.
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

func isHexChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// BlendColors linearly interpolates between two hex colors.
// t=0 returns a, t=1 returns b.
func BlendColors(a, b string, t float64) string {
	ar, ag, ab := HexToRGB(a)
	br, bg, bb := HexToRGB(b)

	lerp := func(x, y int, t float64) int {
		return int(math.Round(float64(x)*(1-t) + float64(y)*t))
	}

	return RGBToHex(
		lerp(ar, br, t),
		lerp(ag, bg, t),
		lerp(ab, bb, t),
	)
}
