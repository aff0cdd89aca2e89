package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
)

// Lookup sources.
const (
	SourceCLI   = "cli"
	SourceHTTP  = "http"
	SourceWS    = "ws"
	SourceBatch = "batch"
)

// Lookup is one row of the lookup log.
type Lookup struct {
	ID            string     `json:"id"`
	Call          string     `json:"call"`
	At            time.Time  `json:"at"`
	ADIF          *dxcc.ADIF `json:"adif,omitempty"`
	Entity        string     `json:"entity,omitempty"`
	Matched       string     `json:"matched,omitempty"`
	MatchKind     string     `json:"match_kind,omitempty"`
	Operation     string     `json:"operation,omitempty"`
	Outcome       string     `json:"outcome"`
	Error         string     `json:"error,omitempty"`
	Source        string     `json:"source"`
	DatasetLoadID string     `json:"dataset_load_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DatasetLoad is one installed dataset snapshot.
type DatasetLoad struct {
	ID       string     `json:"id"`
	Path     string     `json:"path"`
	Stats    dxcc.Stats `json:"stats"`
	LoadedAt time.Time  `json:"loaded_at"`
}

// EntityCount is a lookup count per entity.
type EntityCount struct {
	ADIF   dxcc.ADIF `json:"adif"`
	Entity string    `json:"entity"`
	Count  int       `json:"count"`
}

// LookupStats summarizes the lookup log.
type LookupStats struct {
	Total         int            `json:"total"`
	ByOutcome     map[string]int `json:"by_outcome"`
	DistinctCalls int            `json:"distinct_calls"`
	TopEntities   []EntityCount  `json:"top_entities"`
	DatasetLoads  int            `json:"dataset_loads"`
	LastLoad      *DatasetLoad   `json:"last_load,omitempty"`
}

// LookupStore persists lookups and dataset loads.
type LookupStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time

	mu          sync.RWMutex
	currentLoad string
}

// NewLookupStore returns a store over a migrated database.
func NewLookupStore(db *sql.DB, log *zap.SugaredLogger) *LookupStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LookupStore{db: db, logger: log, now: time.Now}
}

// RecordDatasetLoad stores a dataset load. Lookups recorded afterwards
// reference it.
func (s *LookupStore) RecordDatasetLoad(ctx context.Context, path string, stats dxcc.Stats, loadedAt time.Time) (string, error) {
	id := uuid.NewString()
	var date sql.NullTime
	if !stats.Date.IsZero() {
		date = sql.NullTime{Time: stats.Date.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO dataset_loads
		(id, path, dataset_date, entities, prefixes, exceptions, invalid_operations, zone_exceptions, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, path, date, stats.Entities, stats.Prefixes, stats.Exceptions,
		stats.InvalidOperations, stats.ZoneExceptions, loadedAt.UTC())
	if err != nil {
		return "", errors.Wrapf(err, "record dataset load %s", path)
	}

	s.mu.Lock()
	s.currentLoad = id
	s.mu.Unlock()

	s.logger.Debugw("Recorded dataset load",
		logger.FieldPath, path,
		logger.FieldDatasetDate, stats.Date)
	return id, nil
}

// Record stores the outcome of one Analyze call. res is nil when err is set.
func (s *LookupStore) Record(ctx context.Context, source, call string, at time.Time, res *callsign.Result, lookupErr error) (string, error) {
	l := Lookup{
		ID:        uuid.NewString(),
		Call:      call,
		At:        at.UTC(),
		Outcome:   callsign.Outcome(lookupErr),
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
	if lookupErr != nil {
		l.Error = lookupErr.Error()
	}
	if res != nil {
		adif := res.ADIF
		l.Call = res.Call
		l.At = res.At
		l.ADIF = &adif
		l.Entity = res.Name
		l.Matched = res.Matched
		l.MatchKind = string(res.MatchKind)
		l.Operation = string(res.Operation)
	}

	s.mu.RLock()
	l.DatasetLoadID = s.currentLoad
	s.mu.RUnlock()

	var adif sql.NullInt64
	if l.ADIF != nil {
		adif = sql.NullInt64{Int64: int64(*l.ADIF), Valid: true}
	}
	var loadID sql.NullString
	if l.DatasetLoadID != "" {
		loadID = sql.NullString{String: l.DatasetLoadID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO lookups
		(id, call, at, adif, entity, matched, match_kind, operation, outcome, error, source, dataset_load_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Call, l.At, adif, l.Entity, l.Matched, l.MatchKind, l.Operation,
		l.Outcome, l.Error, l.Source, loadID, l.CreatedAt)
	if err != nil {
		if IsDatabaseClosed(err) {
			return "", errors.Wrap(ErrDatabaseClosed, "record lookup")
		}
		return "", errors.Wrapf(err, "record lookup %s", l.Call)
	}
	return l.ID, nil
}

const lookupColumns = `id, call, at, adif, entity, matched, match_kind, operation, outcome, error, source, dataset_load_id, created_at`

func scanLookups(rows *sql.Rows) ([]Lookup, error) {
	defer rows.Close()
	var out []Lookup
	for rows.Next() {
		var (
			l      Lookup
			adif   sql.NullInt64
			loadID sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Call, &l.At, &adif, &l.Entity, &l.Matched, &l.MatchKind,
			&l.Operation, &l.Outcome, &l.Error, &l.Source, &loadID, &l.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan lookup")
		}
		if adif.Valid {
			a := dxcc.ADIF(adif.Int64)
			l.ADIF = &a
		}
		l.DatasetLoadID = loadID.String
		out = append(out, l)
	}
	return out, errors.Wrap(rows.Err(), "iterate lookups")
}

// Recent returns the newest lookups, newest first.
func (s *LookupStore) Recent(ctx context.Context, limit int) ([]Lookup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lookupColumns+` FROM lookups ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query recent lookups")
	}
	return scanLookups(rows)
}

// History returns the lookups of one call, newest first.
func (s *LookupStore) History(ctx context.Context, call string, limit int) ([]Lookup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lookupColumns+` FROM lookups WHERE call = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, call, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "query history of %s", call)
	}
	return scanLookups(rows)
}

// DatasetLoads returns the newest dataset loads, newest first.
func (s *LookupStore) DatasetLoads(ctx context.Context, limit int) ([]DatasetLoad, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, dataset_date, entities, prefixes, exceptions,
		invalid_operations, zone_exceptions, loaded_at
		FROM dataset_loads ORDER BY loaded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query dataset loads")
	}
	defer rows.Close()

	var out []DatasetLoad
	for rows.Next() {
		var (
			d    DatasetLoad
			date sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.Path, &date, &d.Stats.Entities, &d.Stats.Prefixes, &d.Stats.Exceptions,
			&d.Stats.InvalidOperations, &d.Stats.ZoneExceptions, &d.LoadedAt); err != nil {
			return nil, errors.Wrap(err, "scan dataset load")
		}
		if date.Valid {
			d.Stats.Date = date.Time.UTC()
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "iterate dataset loads")
}

// Stats summarizes the lookup log.
func (s *LookupStore) Stats(ctx context.Context, top int) (LookupStats, error) {
	stats := LookupStats{ByOutcome: make(map[string]int)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT call) FROM lookups`).Scan(&stats.Total, &stats.DistinctCalls)
	if err != nil {
		return stats, errors.Wrap(err, "count lookups")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM lookups GROUP BY outcome`)
	if err != nil {
		return stats, errors.Wrap(err, "count outcomes")
	}
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			rows.Close()
			return stats, errors.Wrap(err, "scan outcome")
		}
		stats.ByOutcome[outcome] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, errors.Wrap(err, "iterate outcomes")
	}

	rows, err = s.db.QueryContext(ctx, `SELECT adif, entity, COUNT(*) AS n FROM lookups
		WHERE adif IS NOT NULL AND adif != 0
		GROUP BY adif, entity ORDER BY n DESC, adif LIMIT ?`, top)
	if err != nil {
		return stats, errors.Wrap(err, "top entities")
	}
	for rows.Next() {
		var ec EntityCount
		if err := rows.Scan(&ec.ADIF, &ec.Entity, &ec.Count); err != nil {
			rows.Close()
			return stats, errors.Wrap(err, "scan entity count")
		}
		stats.TopEntities = append(stats.TopEntities, ec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, errors.Wrap(err, "iterate entity counts")
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dataset_loads`).Scan(&stats.DatasetLoads); err != nil {
		return stats, errors.Wrap(err, "count dataset loads")
	}
	if stats.DatasetLoads > 0 {
		loads, err := s.DatasetLoads(ctx, 1)
		if err != nil {
			return stats, err
		}
		stats.LastLoad = &loads[0]
	}
	return stats, nil
}
