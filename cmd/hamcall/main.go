package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/am"
	"github.com/teranos/hamcall/cmd/hamcall/commands"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/sym"
)

var rootCmd = &cobra.Command{
	Use:   "hamcall",
	Short: "hamcall - callsign to DXCC entity analysis",
	Long: `hamcall - callsign to DXCC entity analysis

hamcall resolves amateur radio callsigns, portable and compound forms
included, to DXCC entities using the ClubLog cty.xml dataset, as of any
point in time.

Available commands:
  lookup  - Resolve callsigns to entities
  prefix  - Show prefix records for a pattern
  batch   - Verify a CSV log against the dataset
  fetch   - Download the ClubLog dataset
  serve   - Start the HTTP and websocket lookup service
  db      - Inspect the lookup log
  am      - Manage configuration ("I am")

Examples:
  hamcall fetch                     # Download cty.xml (needs CLUBLOG_API_KEY)
  hamcall lookup DL1ABC W1AW/MM     # Resolve callsigns now
  hamcall lookup Y21ABC --at 1989-06-01
  hamcall batch qsos.csv            # Check a log
  hamcall serve                     # Start the service on :8073`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonLogs); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		logger.SetLevel(logger.VerbosityToLevel(verbosity))

		// The theme is cosmetic, a broken config is reported by the command
		if theme := am.GetString("server.log_theme"); theme != "" && os.Getenv("HAMCALL_LOG_THEME") == "" {
			logger.SetTheme(theme)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output JSON (results on stdout, logs on stderr)")

	rootCmd.AddCommand(commands.LookupCmd)
	rootCmd.AddCommand(commands.PrefixCmd)
	rootCmd.AddCommand(commands.BatchCmd)
	rootCmd.AddCommand(commands.FetchCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)

	// Every command also answers to its glyph, e.g. hamcall ⌖ DL1ABC
	for _, c := range rootCmd.Commands() {
		if glyph := sym.ForCommand(c.Name()); glyph != "" {
			c.Aliases = append(c.Aliases, glyph)
		}
	}
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError shows err and any hints attached along the way.
func printError(err error) {
	pterm.Error.Println(err.Error())
	if hints := errors.FlattenHints(err); hints != "" {
		pterm.Info.Println(hints)
	}
}
