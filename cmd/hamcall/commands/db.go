package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/display"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Inspect the lookup log",
	Long: sym.DB + ` db — Inspect the lookup log

Lookups are stored when database.record_lookups is set or with
'hamcall lookup --record'.

Examples:
  hamcall db stats                # Lookup counts and dataset load history
  hamcall db lookups --call DL1ABC`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lookup counts and dataset load history",
	RunE:  runDbStats,
}

var dbLookupsCmd = &cobra.Command{
	Use:   "lookups",
	Short: "List recent lookups",
	RunE:  runDbLookups,
}

var (
	statsLimitFlag int
	lookupsCall    string
	lookupsLimit   int
)

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbLookupsCmd)
	dbStatsCmd.Flags().IntVar(&statsLimitFlag, "limit", 10, "Number of top entities and dataset loads to show")
	dbLookupsCmd.Flags().StringVar(&lookupsCall, "call", "", "Only lookups of this call")
	dbLookupsCmd.Flags().IntVar(&lookupsLimit, "limit", 20, "Number of lookups to show")
}

// dbStats is the JSON form of db stats.
type dbStats struct {
	Path  string           `json:"path"`
	Stats db.LookupStats   `json:"stats"`
	Loads []db.DatasetLoad `json:"loads"`
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ls, database, err := openLookupStore(cfg, logger.ComponentLogger("db"))
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	stats, err := ls.Stats(ctx, statsLimitFlag)
	if err != nil {
		return err
	}
	loads, err := ls.DatasetLoads(ctx, statsLimitFlag)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(dbStats{Path: cfg.Database.Path, Stats: stats, Loads: loads})
	}

	fmt.Printf("%s Lookup Log Statistics\n", sym.DB)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:   %s\n", cfg.Database.Path)
	fmt.Printf("Total Lookups:   %d\n", stats.Total)
	fmt.Printf("Distinct Calls:  %d\n", stats.DistinctCalls)
	fmt.Printf("Dataset Loads:   %d\n", stats.DatasetLoads)

	outcomes := make([]string, 0, len(stats.ByOutcome))
	for outcome := range stats.ByOutcome {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	parts := make([]string, len(outcomes))
	for i, o := range outcomes {
		parts[i] = fmt.Sprintf("%s=%d", o, stats.ByOutcome[o])
	}
	fmt.Printf("By Outcome:      %s\n\n", strings.Join(parts, " "))

	if len(stats.TopEntities) > 0 {
		data := pterm.TableData{{"ADIF", "Entity", "Lookups"}}
		for _, ec := range stats.TopEntities {
			data = append(data, []string{pterm.Sprint(ec.ADIF), ec.Entity, pterm.Sprint(ec.Count)})
		}
		pterm.DefaultSection.Println("Top entities")
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	if len(loads) > 0 {
		data := pterm.TableData{{"Loaded", "Dataset date", "Entities", "Prefixes", "Exceptions", "Path"}}
		for _, l := range loads {
			data = append(data, []string{
				l.LoadedAt.Local().Format(time.DateTime),
				l.Stats.Date.Format(time.DateOnly),
				pterm.Sprint(l.Stats.Entities),
				pterm.Sprint(l.Stats.Prefixes),
				pterm.Sprint(l.Stats.Exceptions),
				l.Path,
			})
		}
		pterm.DefaultSection.Println("Dataset loads")
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	return nil
}

func runDbLookups(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ls, database, err := openLookupStore(cfg, logger.ComponentLogger("db"))
	if err != nil {
		return err
	}
	defer database.Close()

	var rows []db.Lookup
	if lookupsCall != "" {
		rows, err = ls.History(cmd.Context(), strings.ToUpper(lookupsCall), lookupsLimit)
	} else {
		rows, err = ls.Recent(cmd.Context(), lookupsLimit)
	}
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(rows)
	}
	if len(rows) == 0 {
		pterm.Info.Println("No lookups recorded")
		return nil
	}

	data := pterm.TableData{{"When", "Source", "Call", "At", "Outcome", "ADIF", "Entity"}}
	for _, l := range rows {
		adif := ""
		if l.ADIF != nil {
			adif = pterm.Sprint(*l.ADIF)
		}
		data = append(data, []string{
			l.CreatedAt.Local().Format(time.DateTime), l.Source, l.Call,
			l.At.Format(time.DateOnly), l.Outcome, adif, l.Entity,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
