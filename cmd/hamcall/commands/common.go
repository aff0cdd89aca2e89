// Package commands holds the hamcall subcommands.
package commands

import (
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/hamcall/am"
	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/snapshot"
)

// timeLayouts are the accepted --at forms, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"20060102",
}

// parseAt parses an --at value. Empty means now. Times without a zone
// are UTC, the convention of ham radio logs.
func parseAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.WithHint(
		errors.NewInvalidRequestError("cannot parse time %q", raw),
		"use RFC3339 (2024-05-01T12:00:00Z) or a date (2024-05-01)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "configuration validation failed"),
			"run 'hamcall am where' to see which file sets it")
	}
	return cfg, nil
}

// analyzerOptions maps configuration onto callsign options.
func analyzerOptions(cfg *am.Config) []callsign.Option {
	return []callsign.Option{
		callsign.WithWhitelistEnforcement(cfg.Analysis.EnforceWhitelist),
	}
}

// loadStore reads the configured dataset into a new store.
func loadStore(cfg *am.Config, log *zap.SugaredLogger) (*snapshot.Store, error) {
	store := snapshot.NewStore(log, analyzerOptions(cfg)...)
	if _, err := store.LoadFile(cfg.Dataset.Path); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "load dataset %s", cfg.Dataset.Path),
			"run 'hamcall fetch' or point dataset.path at a cty.xml file")
	}
	return store, nil
}

// openLookupStore opens and migrates the lookup log database.
func openLookupStore(cfg *am.Config, log *zap.SugaredLogger) (*db.LookupStore, *sql.DB, error) {
	database, err := db.OpenWithMigrations(cfg.Database.Path, log)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open database")
	}
	return db.NewLookupStore(database, log), database, nil
}

func componentLogger(name, glyph string) *zap.SugaredLogger {
	return logger.WithSymbol(logger.ComponentLogger(name), glyph)
}
