package export

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/bytedance/sonic"

	"github.com/retracehq/retrace/internal/retrace"
)

// Formatter writes sessions in various formats.
type Formatter struct {
	format   Format
	writer   io.Writer
	template *template.Template
	now      func() time.Time
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithTemplate sets a custom template for markdown output.
func WithTemplate(tmpl *template.Template) FormatterOption {
	return func(f *Formatter) {
		f.template = tmpl
	}
}

// WithNow overrides the clock used for the Exported stamp.
func WithNow(now func() time.Time) FormatterOption {
	return func(f *Formatter) {
		f.now = now
	}
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(w io.Writer, format Format, opts ...FormatterOption) *Formatter {
	f := &Formatter{
		format: format,
		writer: w,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Write writes the session to the output.
func (f *Formatter) Write(s *retrace.Session) error {
	switch f.format {
	case FormatMarkdown:
		return f.writeMarkdown(s)
	case FormatJSON:
		return f.writeJSON(s)
	case FormatPlain:
		return f.writePlain(s)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

func (f *Formatter) writeMarkdown(s *retrace.Session) error {
	tmpl := f.template
	if tmpl == nil {
		var err error
		tmpl, err = DefaultTemplate()
		if err != nil {
			return fmt.Errorf("load default template: %w", err)
		}
	}

	return tmpl.Execute(f.writer, NewTemplateData(s, f.now()))
}

func (f *Formatter) writeJSON(s *retrace.Session) error {
	data, err := sonic.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if _, err := f.writer.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(f.writer, "\n")
	return err
}

func (f *Formatter) writePlain(s *retrace.Session) error {
	for _, ev := range s.Events {
		body := ev.Content
		if body == "" && ev.Kind == retrace.KindToolUse {
			body = toolInputJSON(ev.ToolInput)
		}
		if _, err := fmt.Fprintf(f.writer, "%s\n%s\n\n", eventHeading(ev), body); err != nil {
			return err
		}
	}
	return nil
}
