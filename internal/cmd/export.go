package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/cli"
	"github.com/retracehq/retrace/internal/export"
	"github.com/retracehq/retrace/internal/retrace"
)

// Export command flags
var (
	exportFormat       string
	exportOutput       string
	exportStdout       bool
	exportTemplateName string
	exportTemplateFile string
	exportListTmpls    bool
)

var exportCmd = &cobra.Command{
	Use:   "export [session]",
	Short: "Export a session to markdown, JSON, or plain text",
	Long: `Export a recorded session to a file or stdout.

The session can be specified as:
  - Full path to a known session file
  - Session ID (requires -p/--project or a detectable cwd project)
  - Filename (requires -p/--project or a detectable cwd project)

If no session is specified, shows an interactive picker of recent
sessions across all sources.

The markdown format can be customized with a Go text/template via
--template (embedded template name) or --template-file.

` + export.TemplateHelp + `

Examples:
  retrace export                          # Pick a session, export markdown
  retrace export abc123 -f json
  retrace export abc123 -o ./notes/       # Into a directory, default name
  retrace export abc123 -o session.md     # Explicit file name
  retrace export abc123 --stdout          # Write to stdout
  retrace export --list-templates`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "output format (markdown|json|plain)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file or directory (default: current directory, derived name)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "write to stdout instead of a file")
	exportCmd.Flags().StringVarP(&sessionProject, "project", "p", "", "project path to scope the session query")
	exportCmd.Flags().StringVar(&exportTemplateName, "template", "", "embedded template name (see --list-templates)")
	exportCmd.Flags().StringVar(&exportTemplateFile, "template-file", "", "custom template file for markdown output")
	exportCmd.Flags().BoolVar(&exportListTmpls, "list-templates", false, "list embedded templates and exit")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportListTmpls {
		names, err := export.ListEmbeddedTemplates()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	registry := CreateSourceRegistry()
	ctx := context.Background()

	meta, err := resolveExportSession(ctx, registry, args)
	if err != nil {
		return err
	}
	if meta == nil {
		return nil // User cancelled the picker
	}

	store, ok := registry.Get(meta.Source)
	if !ok {
		return fmt.Errorf("source not available: %s", meta.Source)
	}
	session, err := store.LoadSession(ctx, meta.ID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var opts []export.FormatterOption
	tmpl, err := exportTemplate()
	if err != nil {
		return err
	}
	if tmpl != nil {
		opts = append(opts, export.WithTemplate(tmpl))
	}

	if exportStdout {
		return export.Write(os.Stdout, session, format, opts...)
	}

	dir, name := splitExportTarget(exportOutput)
	path, err := export.WriteFile(dir, name, session, format, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// resolveExportSession picks the session to export from the argument, the
// cwd project, or the interactive picker.
func resolveExportSession(ctx context.Context, registry *retrace.StoreRegistry, args []string) (*retrace.SessionMeta, error) {
	if len(args) > 0 {
		scope := sessionProject
		if scope == "" && !filepath.IsAbs(args[0]) {
			cwd, err := os.Getwd()
			if err == nil {
				if project := registry.FindProjectForPath(ctx, cwd); project != nil {
					scope = project.ID
				}
			}
		}
		return cli.ResolveSession(registry, scope, args[0])
	}

	if !isTTY() {
		return nil, fmt.Errorf("no session specified and no TTY available\n\nUsage: retrace export <session>")
	}

	item, err := cli.PickSessionInteractive(registry)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return &item.Session, nil
}

// exportTemplate loads the template selected by --template or
// --template-file, or nil for the built-in default.
func exportTemplate() (*template.Template, error) {
	if exportTemplateFile != "" {
		tmpl, err := export.LoadTemplateFile(exportTemplateFile)
		if err != nil {
			return nil, fmt.Errorf("load template file: %w", err)
		}
		return tmpl, nil
	}
	if exportTemplateName != "" {
		tmpl, err := export.LoadEmbeddedTemplate(exportTemplateName)
		if err != nil {
			return nil, fmt.Errorf("load template %q: %w", exportTemplateName, err)
		}
		return tmpl, nil
	}
	return nil, nil
}

// splitExportTarget interprets -o as a directory when it ends in a path
// separator or names an existing directory, otherwise as a file path.
func splitExportTarget(output string) (dir, name string) {
	if output == "" {
		return "", ""
	}
	if strings.HasSuffix(output, string(os.PathSeparator)) {
		return output, ""
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return output, ""
	}
	return filepath.Dir(output), filepath.Base(output)
}
