package commands

import (
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/am"
	"github.com/teranos/hamcall/batch"
	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/display"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/sym"
)

// BatchCmd verifies a log of calls against the dataset
var BatchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: sym.Batch + " Verify a CSV log against the dataset",
	Long: sym.Batch + ` batch — Verify a CSV log against the dataset

FILE holds CALL,ADIF,QSO_DATE,TIME_ON rows (a header row is optional and
may reorder the columns). Every call is analyzed at its contact time and
compared with the claimed ADIF. Use - to read stdin.

Examples:
  hamcall batch qsos.csv
  hamcall batch qsos.csv --workers 8 --mismatches bad.csv
  hamcall batch - --json < qsos.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	batchWorkers    int
	batchMismatches string
	batchRecord     bool
)

func init() {
	BatchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Concurrent analyses (default batch.workers)")
	BatchCmd.Flags().StringVar(&batchMismatches, "mismatches", "", "Write mismatched and failed rows to this CSV file")
	BatchCmd.Flags().BoolVar(&batchRecord, "record", false, "Store every lookup in the database")
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return f, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := componentLogger("batch", sym.Batch)

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	entries, err := batch.ReadCSV(in)
	in.Close()
	if err != nil {
		return errors.Wrapf(err, "read %s", args[0])
	}
	if len(entries) == 0 {
		return errors.NewInvalidRequestError("%s has no rows", args[0])
	}

	store, err := loadStore(cfg, log)
	if err != nil {
		return err
	}
	a, err := store.Analyzer()
	if err != nil {
		return err
	}

	workers := batchWorkers
	if workers <= 0 {
		workers = cfg.Batch.Workers
	}

	jsonOut := display.ShouldOutputJSON(cmd)
	opts := batch.Options{Workers: workers, Logger: log}
	var progress *pterm.ProgressbarPrinter
	if !jsonOut {
		pb, err := pterm.DefaultProgressbar.
			WithTotal(len(entries)).
			WithTitle(sym.Batch + " Verifying").
			WithRemoveWhenDone().
			Start()
		if err == nil {
			progress = pb
			opts.OnOutcome = func(batch.Outcome) { progress.Increment() }
		}
	}

	report, err := batch.Run(cmd.Context(), a, entries, opts)
	if progress != nil {
		_, _ = progress.Stop()
	}
	if err != nil {
		return errors.Wrap(err, "batch run")
	}

	if batchRecord || cfg.Database.RecordLookups {
		if err := recordReport(cmd, cfg, store.Current().Path, report); err != nil {
			return err
		}
	}

	if batchMismatches != "" {
		f, err := os.Create(batchMismatches)
		if err != nil {
			return errors.Wrapf(err, "create %s", batchMismatches)
		}
		werr := batch.WriteMismatches(f, report.Outcomes)
		cerr := f.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return errors.Wrapf(cerr, "close %s", batchMismatches)
		}
	}

	if jsonOut {
		return display.OutputJSON(report)
	}
	renderReport(report)
	return nil
}

// recordReport stores every outcome in the lookup log.
func recordReport(cmd *cobra.Command, cfg *am.Config, path string, report *batch.Report) error {
	ls, database, err := openLookupStore(cfg, logger.ComponentLogger("db"))
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	for _, o := range report.Outcomes {
		if _, err := ls.Record(ctx, db.SourceBatch, o.Call, o.At, o.Result, o.Err); err != nil {
			return errors.Wrapf(err, "record line %d", o.Line)
		}
	}
	return nil
}

func renderReport(report *batch.Report) {
	pterm.DefaultSection.Println(sym.Batch + " Batch verification")
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"Total", pterm.Sprint(report.Total)},
		{"Matched", pterm.Green(report.Matched)},
		{"Mismatched", pterm.Yellow(report.Mismatched)},
		{"Failed", pterm.Red(report.Failed)},
		{"Duration", report.Duration.Round(time.Millisecond).String()},
	}).Render()

	mismatches := report.Mismatches()
	if len(mismatches) == 0 {
		pterm.Success.Println("Every call resolves to its claimed entity")
		return
	}

	data := pterm.TableData{{"Line", "Call", "Date", "Expected", "Got", "Entity / error"}}
	for _, o := range mismatches {
		detail := o.Entity
		if o.Status == batch.StatusFailed {
			detail = o.Error
		}
		data = append(data, []string{
			pterm.Sprint(o.Line), o.Call, o.At.Format("2006-01-02 15:04"),
			pterm.Sprint(o.Expected), pterm.Sprint(o.Got), detail,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
