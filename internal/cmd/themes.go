package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/cli"
	"github.com/retracehq/retrace/internal/tui"
	"github.com/retracehq/retrace/internal/tui/theme"
)

var (
	themesJSON       bool
	themesImportName string
)

var themesCmd = &cobra.Command{
	Use:     "themes",
	Aliases: []string{"theme"},
	Short:   "Browse and manage color themes",
	Long: `Browse, preview, and manage color themes for the timeline viewer.

Without a subcommand, opens the interactive theme browser.

Examples:
  retrace themes                       # Interactive browser
  retrace themes list                  # List available themes
  retrace themes show solarized-dark   # Preview a theme's palette
  retrace themes set solarized-dark    # Make a theme active
  retrace themes builder               # Edit the active theme interactively
  retrace themes import Dracula.itermcolors`,
	RunE: runThemesBrowse,
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available themes",
	RunE:  runThemesList,
}

var themesShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Preview a theme's palette",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runThemesShow,
}

var themesSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Set the active theme",
	Args:  cobra.ExactArgs(1),
	RunE:  runThemesSet,
}

var themesBuilderCmd = &cobra.Command{
	Use:   "builder [name]",
	Short: "Edit a theme interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runThemesBuilder,
}

var themesImportCmd = &cobra.Command{
	Use:   "import <file.itermcolors>",
	Short: "Import an iTerm2 color scheme as a theme",
	Args:  cobra.ExactArgs(1),
	RunE:  runThemesImport,
}

func init() {
	themesListCmd.Flags().BoolVar(&themesJSON, "json", false, "Output as JSON")
	themesShowCmd.Flags().BoolVar(&themesJSON, "json", false, "Output as JSON")
	themesImportCmd.Flags().StringVar(&themesImportName, "name", "", "Name for the imported theme (default derived from the file)")

	themesCmd.AddCommand(themesListCmd)
	themesCmd.AddCommand(themesShowCmd)
	themesCmd.AddCommand(themesSetCmd)
	themesCmd.AddCommand(themesBuilderCmd)
	themesCmd.AddCommand(themesImportCmd)
	rootCmd.AddCommand(themesCmd)
}

func runThemesBrowse(cmd *cobra.Command, args []string) error {
	if !isTTY() {
		return fmt.Errorf("theme browser requires a terminal (try 'retrace themes list')")
	}
	return tui.RunThemeBrowser()
}

func runThemesList(cmd *cobra.Command, args []string) error {
	if themesJSON {
		return cli.ListThemesJSON(os.Stdout)
	}
	return cli.ListThemes(os.Stdout)
}

func runThemesShow(cmd *cobra.Command, args []string) error {
	var t theme.Theme
	var err error
	if len(args) > 0 {
		t, err = theme.LoadByName(args[0])
	} else {
		t, err = theme.Load()
	}
	if err != nil {
		return err
	}

	display := cli.NewThemeDisplay(os.Stdout, t)
	if themesJSON {
		return display.ShowJSON()
	}
	return display.Show()
}

func runThemesSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := theme.SetActive(name); err != nil {
		return err
	}
	fmt.Printf("Theme set to: %s\n", name)
	return nil
}

func runThemesBuilder(cmd *cobra.Command, args []string) error {
	if !isTTY() {
		return fmt.Errorf("theme builder requires a terminal")
	}
	name := theme.ActiveName()
	if len(args) > 0 {
		name = args[0]
	}
	return tui.RunThemeBuilder(name)
}

func runThemesImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	name := themesImportName
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
		name = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := theme.ImportIterm(f, name)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if err := theme.Save(name, t); err != nil {
		return err
	}

	fmt.Printf("Imported theme %q (activate with 'retrace themes set %s')\n", name, name)
	return nil
}
