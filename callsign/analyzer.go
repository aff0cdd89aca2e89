// Package callsign resolves amateur radio callsigns to DXCC entities.
//
// Tokenize splits a call into parts, a Resolver matches parts against a
// dxcc.Dataset and an Analyzer ties both together:
//
//	a := callsign.NewAnalyzer(ds)
//	res, err := a.Analyze("F0BAU/FC", time.Now())
//	switch {
//	case errors.Is(err, callsign.ErrAmbiguous):
//	    var amb *callsign.AmbiguousError
//	    errors.As(err, &amb) // amb.Candidates
//	case err == nil:
//	    fmt.Println(res.Name, res.ADIF) // CORSICA 214
//	}
//
// Analysis is a pure function of the call, the time and the dataset.
package callsign

import (
	"time"

	"github.com/teranos/hamcall/dxcc"
)

// Operation is a kind of station that counts for no entity.
type Operation string

const (
	OperationNone               Operation = ""
	OperationMaritimeMobile     Operation = "maritime_mobile"
	OperationAeronauticalMobile Operation = "aeronautical_mobile"
	OperationSatellite          Operation = "satellite"
)

// EntityName is the dataset's name for the operation.
func (o Operation) EntityName() string {
	switch o {
	case OperationMaritimeMobile:
		return dxcc.EntityMaritimeMobile
	case OperationAeronauticalMobile:
		return dxcc.EntityAeronauticalMobile
	case OperationSatellite:
		return dxcc.EntitySatellite
	}
	return ""
}

func operationForAppendix(part string) Operation {
	switch part {
	case "MM":
		return OperationMaritimeMobile
	case "AM":
		return OperationAeronauticalMobile
	case "SAT":
		return OperationSatellite
	}
	return OperationNone
}

func operationForEntityName(name string) Operation {
	switch name {
	case dxcc.EntityMaritimeMobile:
		return OperationMaritimeMobile
	case dxcc.EntityAeronauticalMobile:
		return OperationAeronauticalMobile
	case dxcc.EntitySatellite:
		return OperationSatellite
	}
	return OperationNone
}

// Result is a resolved callsign.
type Result struct {
	Call      string         `json:"call"`
	At        time.Time      `json:"at"`
	ADIF      dxcc.ADIF      `json:"adif"`
	Name      string         `json:"name,omitempty"`
	Continent dxcc.Continent `json:"continent,omitempty"`
	CQZone    int            `json:"cq_zone,omitempty"`
	ITUZone   int            `json:"itu_zone,omitempty"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	// Matched is the literal prefix pattern or exception call.
	Matched   string    `json:"matched"`
	MatchKind Source    `json:"match_kind"`
	Operation Operation `json:"operation,omitempty"`
	// Unverified is set when the entity only accepts approved calls and
	// this call is not one of them.
	Unverified bool `json:"unverified,omitempty"`

	// Entity is nil for NoDXCC results.
	Entity     *dxcc.Entity `json:"-"`
	Candidates []Candidate  `json:"candidates,omitempty"`
}

// CountsForDXCC reports whether the call counts for a real entity.
func (r *Result) CountsForDXCC() bool {
	return r.ADIF != dxcc.NoDXCC && r.Operation == OperationNone
}

// Analyzer answers callsign queries against one dataset. It holds no
// mutable state and is safe for concurrent use.
type Analyzer struct {
	ds       *dxcc.Dataset
	resolver *Resolver
	now      func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock sets the time used when Analyze gets a zero time.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithWhitelistEnforcement controls whether whitelisted compound patterns
// require the call to be approved by the entity.
func WithWhitelistEnforcement(enforce bool) Option {
	return func(a *Analyzer) {
		a.resolver.EnforceWhitelist = enforce
	}
}

// NewAnalyzer returns an Analyzer over ds.
func NewAnalyzer(ds *dxcc.Dataset, opts ...Option) *Analyzer {
	a := &Analyzer{
		ds:       ds,
		resolver: NewResolver(ds),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dataset returns the dataset the Analyzer queries.
func (a *Analyzer) Dataset() *dxcc.Dataset {
	return a.ds
}

// Analyze resolves raw at time at. A zero at means now.
func (a *Analyzer) Analyze(raw string, at time.Time) (*Result, error) {
	if at.IsZero() {
		at = a.now()
	}
	at = at.UTC()

	tokens := Tokenize(raw)
	call := tokens.Joined()

	if problem := tokens.Problem(); problem != "" {
		return nil, invalid(call, problem)
	}
	if a.ds.IsInvalidOperation(call, at) {
		return nil, invalidOperation(call)
	}

	res, err := a.resolver.ResolveCandidates(tokens, at)
	if err != nil {
		return nil, err
	}

	win := res.Winner()
	out := &Result{
		Call:       call,
		At:         at,
		Matched:    win.Matched,
		MatchKind:  win.Source,
		Operation:  res.Operation,
		Candidates: res.Candidates,
	}

	if res.Operation != OperationNone {
		out.ADIF = dxcc.NoDXCC
		out.Name = res.Operation.EntityName()
		return out, nil
	}

	loc := win.Location()
	out.ADIF = win.ADIF
	out.Entity = win.Entity
	out.Name = win.Name()
	out.Continent = loc.Continent
	out.CQZone = loc.CQZone
	out.ITUZone = loc.ITUZone
	out.Latitude = loc.Latitude
	out.Longitude = loc.Longitude

	if zone, ok := a.ds.ZoneException(call, at); ok {
		out.CQZone = zone
	}
	if win.Source == SourcePrefix || win.Source == SourceCompound {
		out.Unverified = !CheckWhitelist(a.ds, call, win.ADIF, at)
	}
	return out, nil
}
