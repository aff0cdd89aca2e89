package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/snapshot"
	"github.com/teranos/hamcall/version"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// HandleHealth reports liveness and whether a dataset is loaded. It answers
// 503 until the first dataset is installed.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	health := HealthResponse{
		Status:  "ok",
		State:   s.getState().String(),
		Version: info.Version,
		Commit:  info.Short(),
		Clients: s.clientCount(),
	}

	status := http.StatusOK
	if snap := s.store.Current(); snap != nil {
		health.DatasetLoaded = true
		if d := snap.Dataset.Date; !d.IsZero() {
			health.DatasetDate = &d
		}
	} else {
		health.Status = "no_dataset"
		status = http.StatusServiceUnavailable
	}
	if s.getState() == ServerStateDraining {
		health.Status = "draining"
		status = http.StatusServiceUnavailable
	}
	_ = writeJSON(w, status, health)
}

// currentSnapshot returns the current snapshot or writes 503.
func (s *Server) currentSnapshot(w http.ResponseWriter) (*snapshot.Snapshot, bool) {
	snap := s.store.Current()
	if snap == nil {
		_, err := s.store.Analyzer()
		writeWrappedError(w, s.logger, err, "no dataset")
		return nil, false
	}
	return snap, true
}

// HandleLookup analyzes GET /api/lookup/{call}?at=. The call may contain
// slashes.
func (s *Server) HandleLookup(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r.URL.Query().Get("at"))
	if err != nil {
		writeWrappedError(w, s.logger, err, "parse at")
		return
	}
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}

	call := chi.URLParam(r, "*")
	resp := s.lookup(r.Context(), snap.Analyzer, db.SourceHTTP, call, at)

	status := http.StatusOK
	if resp.Error != "" {
		status = statusForOutcome(resp.Outcome)
	}
	_ = writeJSON(w, status, resp)
}

// statusForOutcome is statusFor for a callsign.Outcome string.
func statusForOutcome(outcome string) int {
	switch outcome {
	case "ok":
		return http.StatusOK
	case "no_match":
		return http.StatusNotFound
	case "ambiguous":
		return http.StatusConflict
	case "invalid", "invalid_operation":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// HandleBatchLookup analyzes every call of a POST /api/lookup body against
// one snapshot. Failed calls do not fail the request.
func (s *Server) HandleBatchLookup(w http.ResponseWriter, r *http.Request) {
	var req BatchLookupRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	defaultAt, err := parseAt(req.At)
	if err != nil {
		writeWrappedError(w, s.logger, err, "parse at")
		return
	}

	items := make([]BatchLookupItem, 0, len(req.Calls)+len(req.Items))
	for _, c := range req.Calls {
		items = append(items, BatchLookupItem{Call: c})
	}
	items = append(items, req.Items...)

	if len(items) == 0 {
		writeWrappedError(w, s.logger, errors.NewInvalidRequestError("no calls given"), "batch lookup")
		return
	}
	if len(items) > s.cfg.MaxBatch {
		err := errors.Wrapf(ErrBatchTooLarge, "%d calls, limit is %d", len(items), s.cfg.MaxBatch)
		writeWrappedError(w, s.logger, err, "batch lookup")
		return
	}

	times := make([]time.Time, len(items))
	for i, item := range items {
		times[i] = defaultAt
		if item.At != "" {
			if times[i], err = parseAt(item.At); err != nil {
				writeWrappedError(w, s.logger, errors.Wrapf(err, "item %d", i), "parse at")
				return
			}
		}
	}

	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}

	resp := BatchLookupResponse{
		Results: make([]LookupResponse, len(items)),
		Total:   len(items),
	}
	for i, item := range items {
		resp.Results[i] = s.lookup(r.Context(), snap.Analyzer, db.SourceHTTP, item.Call, times[i])
		if resp.Results[i].Error != "" {
			resp.Failed++
		}
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

// HandlePrefix lists the prefix records for a pattern active at ?at=.
// With ?history=true every record for the pattern is listed.
func (s *Server) HandlePrefix(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r.URL.Query().Get("at"))
	if err != nil {
		writeWrappedError(w, s.logger, err, "parse at")
		return
	}
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	pattern := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "*")))
	var prefixes []*dxcc.Prefix
	if r.URL.Query().Get("history") == "true" {
		prefixes = snap.Dataset.PrefixHistory(pattern)
	} else {
		prefixes = snap.Dataset.Prefixes(pattern, at)
	}
	if len(prefixes) == 0 {
		writeWrappedError(w, s.logger, errors.NewNotFoundError("no prefix record for %q", pattern), "prefix")
		return
	}

	views := make([]PrefixView, len(prefixes))
	for i, p := range prefixes {
		views[i] = newPrefixView(p)
	}
	_ = writeJSON(w, http.StatusOK, views)
}

// HandleEntities lists every entity ordered by ADIF.
func (s *Server) HandleEntities(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	entities := snap.Dataset.Entities()
	views := make([]EntityView, len(entities))
	for i, e := range entities {
		views[i] = newEntityView(e)
	}
	_ = writeJSON(w, http.StatusOK, views)
}

// HandleEntity returns one entity by ADIF number.
func (s *Server) HandleEntity(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "adif")
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		writeWrappedError(w, s.logger, errors.NewInvalidRequestError("invalid ADIF number %q", raw), "entity")
		return
	}
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	e, found := snap.Dataset.Entity(dxcc.ADIF(n))
	if !found {
		writeWrappedError(w, s.logger, errors.NewNotFoundError("entity %d", n), "entity")
		return
	}
	_ = writeJSON(w, http.StatusOK, newEntityView(e))
}

// HandleDataset describes the loaded snapshot.
func (s *Server) HandleDataset(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	_ = writeJSON(w, http.StatusOK, DatasetResponse{
		Path:     snap.Path,
		LoadedAt: snap.LoadedAt,
		Stats:    snap.Dataset.Stats(),
	})
}

// lookupStore returns the lookup log or writes 503 when recording is off.
func (s *Server) lookupStore(w http.ResponseWriter) (*db.LookupStore, bool) {
	if s.lookups == nil {
		err := errors.WithHint(
			errors.Mark(errors.New("lookup log disabled"), errors.ErrServiceUnavailable),
			"set database.record_lookups = true")
		writeWrappedError(w, s.logger, err, "lookups")
		return nil, false
	}
	return s.lookups, true
}

func listLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.NewInvalidRequestError("invalid limit %q", raw)
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

// HandleLookups lists recorded lookups, newest first. ?call= narrows the
// list to one callsign.
func (s *Server) HandleLookups(w http.ResponseWriter, r *http.Request) {
	store, ok := s.lookupStore(w)
	if !ok {
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		writeWrappedError(w, s.logger, err, "lookups")
		return
	}

	var lookups []db.Lookup
	if call := r.URL.Query().Get("call"); call != "" {
		lookups, err = store.History(r.Context(), strings.ToUpper(strings.TrimSpace(call)), limit)
	} else {
		lookups, err = store.Recent(r.Context(), limit)
	}
	if err != nil {
		writeWrappedError(w, s.logger, err, "failed to list lookups")
		return
	}
	if lookups == nil {
		lookups = []db.Lookup{}
	}
	_ = writeJSON(w, http.StatusOK, lookups)
}

// HandleLookupStats aggregates the lookup log.
func (s *Server) HandleLookupStats(w http.ResponseWriter, r *http.Request) {
	store, ok := s.lookupStore(w)
	if !ok {
		return
	}
	stats, err := store.Stats(r.Context(), 10)
	if err != nil {
		writeWrappedError(w, s.logger, err, "failed to compute lookup stats")
		return
	}
	_ = writeJSON(w, http.StatusOK, stats)
}
