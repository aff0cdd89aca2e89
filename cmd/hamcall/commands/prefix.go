package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/display"
	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/sym"
)

// PrefixCmd lists the raw prefix records for a pattern
var PrefixCmd = &cobra.Command{
	Use:   "prefix PATTERN",
	Short: sym.Prefix + " Show prefix records for a pattern",
	Long: sym.Prefix + ` prefix — Show prefix records for a pattern

Lists the dataset's prefix records whose pattern is exactly PATTERN and
whose validity window contains --at. With --history every record for the
pattern is listed regardless of time.

Examples:
  hamcall prefix DA
  hamcall prefix Y2 --at 1985-01-01
  hamcall prefix SV/A --history`,
	Args: cobra.ExactArgs(1),
	RunE: runPrefix,
}

var (
	prefixAt      string
	prefixHistory bool
)

func init() {
	PrefixCmd.Flags().StringVar(&prefixAt, "at", "", "Time to evaluate validity at (default now)")
	PrefixCmd.Flags().BoolVar(&prefixHistory, "history", false, "List every record regardless of --at")
}

// prefixRow is the printable form of a dxcc.Prefix.
type prefixRow struct {
	Record      int            `json:"record"`
	Call        string         `json:"call"`
	ADIF        dxcc.ADIF      `json:"adif"`
	Entity      string         `json:"entity"`
	Continent   dxcc.Continent `json:"continent,omitempty"`
	CQZone      int            `json:"cq_zone,omitempty"`
	ITUZone     int            `json:"itu_zone,omitempty"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Window      string         `json:"window"`
	Whitelisted bool           `json:"whitelisted,omitempty"`
}

func runPrefix(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	at, err := parseAt(prefixAt)
	if err != nil {
		return err
	}
	store, err := loadStore(cfg, componentLogger("prefix", sym.Prefix))
	if err != nil {
		return err
	}
	ds := store.Current().Dataset

	pattern := strings.ToUpper(strings.TrimSpace(args[0]))
	var records []*dxcc.Prefix
	if prefixHistory {
		records = ds.PrefixHistory(pattern)
	} else {
		records = ds.Prefixes(pattern, at)
	}
	if len(records) == 0 {
		return errors.NewNotFoundError("no prefix records for %s", pattern)
	}

	rows := make([]prefixRow, len(records))
	for i, p := range records {
		rows[i] = prefixRow{
			Record:      p.Record,
			Call:        p.Call,
			ADIF:        p.ADIF,
			Entity:      p.EntityName,
			Continent:   p.Continent,
			CQZone:      p.CQZone,
			ITUZone:     p.ITUZone,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Window:      p.Window.String(),
			Whitelisted: p.Whitelisted,
		}
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(rows)
	}

	data := pterm.TableData{{"Record", "Prefix", "ADIF", "Entity", "Cont", "CQ", "ITU", "Valid"}}
	for _, r := range rows {
		data = append(data, []string{
			strconv.Itoa(r.Record), r.Call, strconv.Itoa(int(r.ADIF)), r.Entity,
			string(r.Continent), zone(r.CQZone), zone(r.ITUZone), r.Window,
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render table")
	}
	fmt.Fprintln(os.Stdout, table)
	return nil
}
