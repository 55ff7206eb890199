// Package export renders recorded sessions to files: Markdown transcripts
// through a template, raw JSON, or plain text. It backs the `retrace export`
// command and the server's export endpoint.
package export

import (
	"fmt"
	"strings"
)

// Format specifies the output format for exported sessions.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatPlain    Format = "plain"
)

// ParseFormat parses a format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "plain", "text", "txt":
		return FormatPlain, nil
	default:
		return "", fmt.Errorf("unknown format: %s (valid: markdown, json, plain)", s)
	}
}

// Ext returns the filename extension for the format, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatPlain:
		return "txt"
	default:
		return "md"
	}
}

// ContentType returns the HTTP content type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatPlain:
		return "text/plain; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}
