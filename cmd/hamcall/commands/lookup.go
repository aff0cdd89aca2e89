package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/display"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/sym"
)

// LookupCmd resolves callsigns to entities
var LookupCmd = &cobra.Command{
	Use:   "lookup CALL...",
	Short: sym.Lookup + " Resolve callsigns to DXCC entities",
	Long: sym.Lookup + ` lookup — Resolve callsigns to DXCC entities

Each callsign is analyzed against the dataset at dataset.path as it stood
at --at (default now, UTC).

Examples:
  hamcall lookup DL1ABC
  hamcall lookup Y21ABC --at 1989-06-01
  hamcall lookup SV1DC/A W1AW/MM --json
  hamcall lookup DL1ABC --record       # also store in the lookup log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

var (
	lookupAt     string
	lookupRecord bool
)

func init() {
	LookupCmd.Flags().StringVar(&lookupAt, "at", "", "Time of the contact (RFC3339 or YYYY-MM-DD, default now)")
	LookupCmd.Flags().BoolVar(&lookupRecord, "record", false, "Store lookups in the database (also database.record_lookups)")
}

// lookupRow is one analyzed call as printed by lookup.
type lookupRow struct {
	Call       string               `json:"call"`
	Outcome    string               `json:"outcome"`
	Result     *callsign.Result     `json:"result,omitempty"`
	Error      string               `json:"error,omitempty"`
	Candidates []callsign.Candidate `json:"candidates,omitempty"`
	LookupID   string               `json:"lookup_id,omitempty"`
}

func analyzeRow(a *callsign.Analyzer, call string, at time.Time) (lookupRow, *callsign.Result, error) {
	row := lookupRow{Call: call}
	res, err := a.Analyze(call, at)
	row.Outcome = callsign.Outcome(err)
	if err != nil {
		row.Error = err.Error()
		var amb *callsign.AmbiguousError
		if errors.As(err, &amb) {
			row.Candidates = amb.Candidates
		}
		return row, nil, err
	}
	row.Call = res.Call
	row.Result = res
	return row, res, nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	at, err := parseAt(lookupAt)
	if err != nil {
		return err
	}

	log := componentLogger("lookup", sym.Lookup)
	store, err := loadStore(cfg, log)
	if err != nil {
		return err
	}
	a, err := store.Analyzer()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var lookups *db.LookupStore
	if lookupRecord || cfg.Database.RecordLookups {
		ls, database, err := openLookupStore(cfg, log)
		if err != nil {
			return err
		}
		defer database.Close()
		snap := store.Current()
		if _, err := ls.RecordDatasetLoad(ctx, snap.Path, snap.Dataset.Stats(), snap.LoadedAt); err != nil {
			return err
		}
		lookups = ls
	}

	rows := make([]lookupRow, 0, len(args))
	failed := 0
	for _, call := range args {
		row, res, lookupErr := analyzeRow(a, call, at)
		if lookupErr != nil {
			failed++
			log.Debugw("Lookup failed", logger.FieldCall, call, logger.FieldError, lookupErr)
		}
		if lookups != nil {
			id, err := lookups.Record(ctx, db.SourceCLI, call, at, res, lookupErr)
			if err != nil {
				return err
			}
			row.LookupID = id
		}
		rows = append(rows, row)
	}

	if display.ShouldOutputJSON(cmd) {
		if err := display.OutputJSON(rows); err != nil {
			return err
		}
	} else {
		renderLookups(os.Stdout, rows, at)
	}

	if failed > 0 {
		return errors.Newf("%d of %d callsigns could not be resolved", failed, len(rows))
	}
	return nil
}

// renderLookups prints rows as a table.
func renderLookups(w io.Writer, rows []lookupRow, at time.Time) {
	data := pterm.TableData{{"Call", "ADIF", "Entity", "Cont", "CQ", "ITU", "Matched", "Note"}}
	for _, row := range rows {
		if row.Result == nil {
			data = append(data, []string{row.Call, "", "", "", "", "", "", pterm.Red(row.Outcome + ": " + row.Error)})
			continue
		}
		r := row.Result
		data = append(data, []string{
			r.Call,
			strconv.Itoa(int(r.ADIF)),
			r.Name,
			string(r.Continent),
			zone(r.CQZone),
			zone(r.ITUZone),
			fmt.Sprintf("%s (%s)", r.Matched, r.MatchKind),
			note(r),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintf(w, "%s Lookups at %s\n%s\n", sym.Lookup, at.Format(time.RFC3339), table)
}

func zone(z int) string {
	if z == 0 {
		return "-"
	}
	return strconv.Itoa(z)
}

// note explains results that do not count as a plain entity.
func note(r *callsign.Result) string {
	switch {
	case r.Operation != callsign.OperationNone:
		return r.Operation.EntityName()
	case r.Unverified:
		return "not an approved call"
	case !r.CountsForDXCC():
		return "no DXCC entity"
	}
	return ""
}
