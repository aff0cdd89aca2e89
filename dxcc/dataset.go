// Package dxcc is the in-memory model of a ClubLog style DXCC reference
// dataset: entities, prefix patterns, full-call exceptions, invalid
// operations and CQ zone exceptions, each with an optional validity window.
//
// A Dataset is built once by Load and never changes afterwards, so any
// number of goroutines may query it without locking. Callsign arguments to
// the query methods must already be upper case.
package dxcc

import (
	"sort"
	"time"
)

// Dataset is one immutable snapshot of the reference data.
type Dataset struct {
	// Date is the snapshot date stated by the source document, if any.
	Date time.Time

	entities     map[ADIF]*Entity
	entityOrder  []*Entity
	prefixes     map[string][]*Prefix
	exceptions   map[string][]*Exception
	invalid      map[string][]*InvalidOperation
	zones        map[string][]*ZoneException
	maxPrefixLen int
	stats        Stats
}

// Stats counts the records of a Dataset.
type Stats struct {
	Date              time.Time `json:"date"`
	Entities          int       `json:"entities"`
	Prefixes          int       `json:"prefixes"`
	Exceptions        int       `json:"exceptions"`
	InvalidOperations int       `json:"invalid_operations"`
	ZoneExceptions    int       `json:"zone_exceptions"`
}

func newDataset() *Dataset {
	return &Dataset{
		entities:   make(map[ADIF]*Entity),
		prefixes:   make(map[string][]*Prefix),
		exceptions: make(map[string][]*Exception),
		invalid:    make(map[string][]*InvalidOperation),
		zones:      make(map[string][]*ZoneException),
	}
}

func (d *Dataset) addPrefix(p *Prefix) {
	d.prefixes[p.Call] = append(d.prefixes[p.Call], p)
	if n := len(p.Call); n > d.maxPrefixLen {
		d.maxPrefixLen = n
	}
	d.stats.Prefixes++
}

// Stats returns record counts.
func (d *Dataset) Stats() Stats {
	return d.stats
}

// MaxPrefixLen is the length of the longest prefix pattern.
func (d *Dataset) MaxPrefixLen() int {
	return d.maxPrefixLen
}

// Entity returns the entity with the given ADIF number regardless of its
// window.
func (d *Dataset) Entity(adif ADIF) (*Entity, bool) {
	e, ok := d.entities[adif]
	return e, ok
}

// EntityAt returns the entity with the given ADIF number if it existed at t.
func (d *Dataset) EntityAt(adif ADIF, t time.Time) (*Entity, bool) {
	e, ok := d.entities[adif]
	if !ok || !e.Window.Contains(t) {
		return nil, false
	}
	return e, true
}

// Entities returns all entities ordered by ADIF number.
func (d *Dataset) Entities() []*Entity {
	out := make([]*Entity, len(d.entityOrder))
	copy(out, d.entityOrder)
	sort.Slice(out, func(i, j int) bool { return out[i].ADIF < out[j].ADIF })
	return out
}

// Prefixes returns the records for pattern that are active at t, in
// dataset order. Several entities may share a pattern.
func (d *Dataset) Prefixes(pattern string, t time.Time) []*Prefix {
	var out []*Prefix
	for _, p := range d.prefixes[pattern] {
		if p.Window.Contains(t) {
			out = append(out, p)
		}
	}
	return out
}

// PrefixHistory returns every record for pattern, active or not.
func (d *Dataset) PrefixHistory(pattern string) []*Prefix {
	src := d.prefixes[pattern]
	out := make([]*Prefix, len(src))
	copy(out, src)
	return out
}

// Exception returns the first exception for call active at t.
func (d *Dataset) Exception(call string, t time.Time) (*Exception, bool) {
	for _, e := range d.exceptions[call] {
		if e.Window.Contains(t) {
			return e, true
		}
	}
	return nil, false
}

// ZoneException returns the CQ zone override for call active at t.
func (d *Dataset) ZoneException(call string, t time.Time) (int, bool) {
	for _, z := range d.zones[call] {
		if z.Window.Contains(t) {
			return z.Zone, true
		}
	}
	return 0, false
}

// IsInvalidOperation reports whether call was used in an operation the
// dataset marks invalid at t.
func (d *Dataset) IsInvalidOperation(call string, t time.Time) bool {
	for _, op := range d.invalid[call] {
		if op.Window.Contains(t) {
			return true
		}
	}
	return false
}
