package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/hamcall/am"
	"github.com/teranos/hamcall/display"
	"github.com/teranos/hamcall/fetch"
	"github.com/teranos/hamcall/sym"
)

// FetchCmd downloads the dataset
var FetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: sym.Fetch + " Download the ClubLog dataset",
	Long: sym.Fetch + ` fetch — Download the ClubLog dataset

Downloads cty.xml from dataset.url into dataset.path. The ClubLog endpoint
needs an API key: export CLUBLOG_API_KEY or set dataset.api_key. The file
is validated before it replaces the previous one, so a running 'hamcall
serve' with dataset.watch only ever sees complete datasets.

Examples:
  hamcall fetch
  hamcall fetch --force          # ignore dataset.min_refresh_minutes`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var fetchForce bool

func init() {
	FetchCmd.Flags().BoolVar(&fetchForce, "force", false, "Download even if refreshed recently")
}

// newFetcher builds a Fetcher from the dataset section.
func newFetcher(cfg *am.Config, log *zap.SugaredLogger) (*fetch.Fetcher, error) {
	return fetch.New(fetch.Config{
		URL:         cfg.Dataset.URL,
		APIKey:      cfg.Dataset.APIKey,
		Dest:        cfg.Dataset.Path,
		MinInterval: cfg.Dataset.MinRefresh(),
		Timeout:     cfg.Dataset.Timeout(),
	}, log)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := newFetcher(cfg, componentLogger("fetch", sym.Fetch))
	if err != nil {
		return err
	}

	jsonOut := display.ShouldOutputJSON(cmd)
	var spinner *pterm.SpinnerPrinter
	if !jsonOut {
		spinner, _ = pterm.DefaultSpinner.Start("Downloading " + fetch.Redact(cfg.Dataset.URL))
	}
	res, err := f.Fetch(cmd.Context(), fetchForce)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	if jsonOut {
		return display.OutputJSON(res)
	}
	pterm.Success.Printfln("%s Dataset of %s written to %s (%d entities, %d prefixes, %d exceptions, %s)",
		sym.Fetch, res.Stats.Date.Format("2006-01-02"), res.Path,
		res.Stats.Entities, res.Stats.Prefixes, res.Stats.Exceptions, res.Duration.Round(time.Millisecond))
	return nil
}
