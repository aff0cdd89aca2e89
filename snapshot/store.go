// Package snapshot holds the dataset the process currently answers from.
//
// A Store swaps whole snapshots through an atomic pointer: readers take the
// current Snapshot once and keep using it for the duration of a request,
// while a reload builds the next Dataset off to the side. A failed reload
// leaves the previous snapshot in place.
package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/dxcc/ctyxml"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/sym"
)

// ErrNotLoaded is returned while no dataset has been loaded.
var ErrNotLoaded = errors.Mark(errors.New("no dataset loaded"), errors.ErrServiceUnavailable)

// Snapshot is one loaded dataset and the analyzer built over it.
type Snapshot struct {
	Dataset  *dxcc.Dataset
	Analyzer *callsign.Analyzer
	Path     string
	LoadedAt time.Time
}

// ReloadCallback is called after a new snapshot is installed.
type ReloadCallback func(*Snapshot)

// Store holds the current snapshot.
type Store struct {
	current   atomic.Pointer[Snapshot]
	opts      []callsign.Option
	logger    *zap.SugaredLogger
	now       func() time.Time
	loadMu    sync.Mutex
	mu        sync.RWMutex
	callbacks []ReloadCallback
}

// NewStore returns an empty Store. Analyzers it builds get opts.
func NewStore(log *zap.SugaredLogger, opts ...callsign.Option) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{
		opts:   opts,
		logger: log,
		now:    time.Now,
	}
}

// Current returns the installed snapshot or nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Analyzer returns the analyzer of the current snapshot.
func (s *Store) Analyzer() (*callsign.Analyzer, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, errors.WithHint(ErrNotLoaded, "run 'hamcall fetch' or set dataset.path")
	}
	return snap.Analyzer, nil
}

// OnReload registers a callback for every installed snapshot.
func (s *Store) OnReload(cb ReloadCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Install makes ds the current dataset.
func (s *Store) Install(ds *dxcc.Dataset, path string) *Snapshot {
	snap := &Snapshot{
		Dataset:  ds,
		Analyzer: callsign.NewAnalyzer(ds, s.opts...),
		Path:     path,
		LoadedAt: s.now(),
	}
	s.current.Store(snap)

	stats := ds.Stats()
	logger.WithSymbol(s.logger, sym.Reload).Infow("Dataset installed",
		logger.FieldPath, path,
		logger.FieldDatasetDate, stats.Date,
		logger.FieldEntities, stats.Entities,
		logger.FieldPrefixes, stats.Prefixes,
		logger.FieldExceptions, stats.Exceptions)

	s.mu.RLock()
	callbacks := make([]ReloadCallback, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.RUnlock()

	for _, cb := range callbacks {
		cb(snap)
	}
	return snap
}

// LoadFile reads the cty.xml file at path and installs it. On failure the
// current snapshot, if any, stays in place.
func (s *Store) LoadFile(path string) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := s.now()
	ds, err := ctyxml.LoadFile(path)
	if err != nil {
		if prev := s.current.Load(); prev != nil {
			logger.WithSymbol(s.logger, sym.Stale).Warnw("Dataset reload failed, keeping previous dataset",
				logger.FieldPath, path,
				logger.FieldDatasetDate, prev.Dataset.Date,
				logger.FieldError, err)
		}
		return nil, err
	}

	snap := s.Install(ds, path)
	s.logger.Debugw("Dataset load finished",
		logger.FieldPath, path,
		logger.FieldDurationMS, s.now().Sub(start).Milliseconds())
	return snap, nil
}
