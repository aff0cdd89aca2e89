package commands

import (
	"fmt"

	"github.com/teranos/hamcall/am"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/snapshot"
	"github.com/teranos/hamcall/sym"
	"github.com/teranos/hamcall/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(verbosity int, cfg *am.Config, store *snapshot.Store) {
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	blue := "\033[34m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔═══════════════════════════════════════╗\n")
	fmt.Printf("   ║   %s  hamcall  ·  callsign → DXCC      ║\n", sym.Serve)
	fmt.Printf("   ╚═══════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ hamcall ─────────────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:   %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Listening: %s:%d\n", green, reset, cfg.Server.Host, cfg.Server.Port)
	if snap := store.Current(); snap != nil {
		fmt.Printf("%s│%s Dataset:   %s (%s, %d entities)\n", green, reset,
			snap.Path, snap.Dataset.Date.Format("2006-01-02"), snap.Dataset.Stats().Entities)
	} else {
		fmt.Printf("%s│%s Dataset:   %snot loaded%s (%s)\n", green, reset, yellow, reset, cfg.Dataset.Path)
	}
	if cfg.Database.RecordLookups {
		fmt.Printf("%s│%s Database:  %s\n", green, reset, cfg.Database.Path)
	}
	fmt.Printf("%s│%s Verbosity: %s\n", green, reset, logger.LevelName(verbosity))
	fmt.Printf("%s└───────────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s💡 Press Ctrl+C to stop%s\n\n", blue, reset)
}
