package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/am"
	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/server"
	"github.com/teranos/hamcall/snapshot"
	"github.com/teranos/hamcall/sym"
)

// ServeCmd starts the lookup service
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   sym.Serve + " Start the HTTP and websocket lookup service",
	Long: sym.Serve + ` serve — Start the HTTP and websocket lookup service

Endpoints:
  GET  /health                   readiness and dataset date
  GET  /api/lookup/{call}?at=    analyze one call
  POST /api/lookup               analyze many calls
  GET  /api/prefix/{pattern}?at= prefix records
  GET  /api/entities[/{adif}]    entities
  GET  /api/dataset              dataset statistics
  GET  /api/lookups[?call=]      lookup log (database.record_lookups)
  GET  /metrics                  Prometheus metrics
  GET  /ws                       streaming lookups

The dataset is reloaded when dataset.path changes (dataset.watch) and
downloaded every dataset.refresh_interval_hours when set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var servePort int

func init() {
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Default to Info for the server
	verbosity, _ := cmd.Flags().GetCount("verbose")
	if verbosity == 0 {
		verbosity = logger.VerbosityInfo
		logger.SetLevel(logger.VerbosityToLevel(verbosity))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	log := componentLogger("serve", sym.Serve)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store := snapshot.NewStore(logger.ComponentLogger("snapshot"), analyzerOptions(cfg)...)

	// The lookup log must see the first load, so it is wired before it
	var lookups *db.LookupStore
	if cfg.Database.RecordLookups {
		ls, database, err := openLookupStore(cfg, logger.ComponentLogger("db"))
		if err != nil {
			return err
		}
		defer database.Close()
		lookups = ls
		store.OnReload(func(snap *snapshot.Snapshot) {
			if _, err := ls.RecordDatasetLoad(ctx, snap.Path, snap.Dataset.Stats(), snap.LoadedAt); err != nil {
				log.Warnw("Failed to record dataset load", logger.FieldError, err)
			}
		})
	}

	if _, err := store.LoadFile(cfg.Dataset.Path); err != nil {
		// Serve anyway: /health reports no_dataset until a file appears
		log.Warnw("No dataset loaded, lookups answer 503 until one is",
			logger.FieldPath, cfg.Dataset.Path,
			logger.FieldError, err)
	}

	if cfg.Dataset.Watch {
		w, err := snapshot.NewWatcher(store, cfg.Dataset.Path, logger.ComponentLogger("snapshot"))
		if err != nil {
			return errors.Wrap(err, "watch dataset")
		}
		w.Start()
		defer w.Stop()
	}

	startRefresh(ctx, cfg, store)

	if cw := watchConfig(); cw != nil {
		defer func() {
			am.SetGlobalWatcher(nil)
			_ = cw.Stop()
		}()
	}

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.GetServerAllowedOrigins(),
		RateLimit:      cfg.Server.RateLimitPerSecond,
		RateBurst:      cfg.Server.RateLimitBurst,
		MaxBatch:       cfg.Server.MaxBatch,
	}, store, lookups, logger.ComponentLogger("server"))

	printStartupBanner(verbosity, cfg, store)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Wait for shutdown signal (Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			cancel()
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return errors.Wrap(err, "shutdown error")
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}

// startRefresh downloads a missing dataset once and keeps it fresh every
// dataset.refresh_interval_hours. Without an API key it only logs why.
func startRefresh(ctx context.Context, cfg *am.Config, store *snapshot.Store) {
	interval := cfg.Dataset.RefreshInterval()
	missing := store.Current() == nil
	if interval == 0 && !missing {
		return
	}

	log := componentLogger("fetch", sym.Fetch)
	f, err := newFetcher(cfg, log)
	if err != nil {
		log.Warnw("Dataset refresh disabled", logger.FieldError, err)
		return
	}
	if interval > 0 && !cfg.Dataset.Watch {
		log.Warnw("dataset.refresh_interval_hours is set but dataset.watch is off, downloads will not be loaded until restart")
	}

	go func() {
		if missing {
			if _, err := f.Fetch(ctx, true); err != nil {
				log.Warnw("Initial dataset download failed", logger.FieldError, err)
			} else if !cfg.Dataset.Watch {
				if _, err := store.LoadFile(cfg.Dataset.Path); err != nil {
					log.Warnw("Downloaded dataset did not load", logger.FieldError, err)
				}
			}
		}
		if interval > 0 {
			f.Run(ctx, interval)
		}
	}()
}

// watchConfig follows the highest precedence config file. Only the log
// theme applies live, the rest needs a restart.
func watchConfig() *am.ConfigWatcher {
	files := am.ConfigFiles()
	if len(files) == 0 {
		return nil
	}
	path := files[len(files)-1]

	cw, err := am.NewConfigWatcher(path)
	if err != nil {
		logger.Warnw("Config watching disabled", logger.FieldPath, path, logger.FieldError, err)
		return nil
	}
	cw.OnReload(func(cfg *am.Config) error {
		logger.SetTheme(cfg.Server.LogTheme)
		logger.Infow("Config changed, restart to apply server and dataset settings", logger.FieldPath, path)
		return nil
	})
	am.SetGlobalWatcher(cw)
	cw.Start()
	return cw
}
