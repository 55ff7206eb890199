package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/i18n"
	"github.com/retracehq/retrace/internal/tui"
)

var languagePick bool

var languageCmd = &cobra.Command{
	Use:   "language [lang]",
	Short: "Get or set the display language",
	Long: `Get or set the display language. Use a BCP 47 tag (e.g., en, es).

The RETRACE_LANG environment variable overrides the configured language
for a single invocation.

Examples:
  retrace language         # show current language
  retrace language es      # set to Spanish
  retrace language --pick  # choose interactively`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLanguage,
}

func init() {
	languageCmd.Flags().BoolVar(&languagePick, "pick", false, "Choose the language interactively")
	rootCmd.AddCommand(languageCmd)
}

func runLanguage(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if languagePick {
		if !isTTY() {
			return fmt.Errorf("language picker requires a terminal")
		}
		tag, err := tui.RunLanguagePicker(i18n.ResolveLocale(cfg.Language))
		if err != nil {
			return err
		}
		if tag == "" {
			return nil
		}
		cfg.Language = tag
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("Language set to: %s\n", tag)
		return nil
	}

	if len(args) == 0 {
		fmt.Printf("Current language: %s\n", i18n.ResolveLocale(cfg.Language))
		return nil
	}

	cfg.Language = args[0]
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("Language set to: %s\n", args[0])
	return nil
}
