// Package server is hamcall's HTTP and websocket lookup service.
//
// Every request reads the current snapshot once from the snapshot.Store,
// so a reload in the middle of a batch never mixes two datasets. Lookups
// are optionally written to the SQLite lookup log.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/snapshot"
	"github.com/teranos/hamcall/sym"
)

const (
	// DefaultPort is used when Config.Port is zero.
	DefaultPort = 8073

	// DefaultMaxBatch bounds POST /api/lookup.
	DefaultMaxBatch = 1000

	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout = 5 * time.Second

	limiterIdle = 5 * time.Minute
)

// Config configures a Server.
type Config struct {
	Host string
	// Port 0 picks DefaultPort. Serve takes any listener.
	Port           int
	AllowedOrigins []string
	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64
	RateBurst int
	MaxBatch  int
}

// Server answers callsign lookups over HTTP and websocket.
type Server struct {
	cfg      Config
	store    *snapshot.Store
	lookups  *db.LookupStore
	metrics  *Metrics
	limiters *clientLimiters
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	router   chi.Router

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	state  atomic.Int32

	mu      sync.RWMutex
	clients map[*Client]bool

	httpServer *http.Server
}

// New builds a Server over store. lookups may be nil to disable the lookup
// log.
func New(cfg Config, store *snapshot.Store, lookups *db.LookupStore, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		store:   store,
		lookups: lookups,
		metrics: NewMetrics(),
		logger:  logger.WithSymbol(log, sym.Serve),
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[*Client]bool),
	}
	if cfg.RateLimit > 0 {
		s.limiters = newClientLimiters(cfg.RateLimit, cfg.RateBurst)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.state.Store(int32(ServerStateStarting))

	if snap := store.Current(); snap != nil {
		s.metrics.ObserveSnapshot(snap)
	}
	store.OnReload(s.onReload)

	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's prometheus instrumentation.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", s.HandleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/ws", s.HandleWebSocket)

	// Calls and prefixes may contain slashes (DL/W1ABC/P, SV/A), so they
	// are matched as wildcards.
	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Get("/lookup/*", s.HandleLookup)
		r.Post("/lookup", s.HandleBatchLookup)
		r.Get("/prefix/*", s.HandlePrefix)
		r.Get("/entities", s.HandleEntities)
		r.Get("/entities/{adif}", s.HandleEntity)
		r.Get("/dataset", s.HandleDataset)
		r.Get("/lookups", s.HandleLookups)
		r.Get("/lookups/stats", s.HandleLookupStats)
	})
	return r
}

// lookup analyzes one call against a, records it and reports metrics.
// It never fails; the error is part of the response.
func (s *Server) lookup(ctx context.Context, a *callsign.Analyzer, source, call string, at time.Time) LookupResponse {
	start := time.Now()
	res, err := a.Analyze(call, at)
	outcome := callsign.Outcome(err)
	s.metrics.ObserveLookup(source, outcome, time.Since(start))

	resp := LookupResponse{Call: call, Outcome: outcome, Result: res}
	if err != nil {
		resp.Result = nil
		resp.Error = err.Error()
		var amb *callsign.AmbiguousError
		if errors.As(err, &amb) {
			resp.Candidates = amb.Candidates
		}
		logger.WithSymbol(logger.WithContext(s.logger, ctx), sym.Rejected).Debugw("Lookup rejected",
			logger.FieldCall, call,
			"outcome", outcome,
			logger.FieldError, err)
	}

	if s.lookups != nil {
		recordAt := at
		if res != nil {
			recordAt = res.At
		} else if recordAt.IsZero() {
			recordAt = time.Now().UTC()
		}
		id, recErr := s.lookups.Record(ctx, source, call, recordAt, res, err)
		if recErr != nil {
			s.metrics.recordFailures.Inc()
			logger.WithContext(s.logger, ctx).Warnw("Failed to record lookup",
				logger.FieldCall, call,
				logger.FieldError, recErr)
		}
		resp.LookupID = id
	}
	return resp
}

// onReload runs after every snapshot swap.
func (s *Server) onReload(snap *snapshot.Snapshot) {
	s.metrics.ObserveSnapshot(snap)
	s.broadcastMessage(DatasetMessage{
		Type:  "dataset",
		Path:  snap.Path,
		Stats: snap.Dataset.Stats(),
	})
}

// broadcastMessage sends msg to every connected client and returns how
// many accepted it. Clients with a full queue are skipped.
func (s *Server) broadcastMessage(msg interface{}) int {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.trySend(msg) {
			sent++
		}
	}
	return sent
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
