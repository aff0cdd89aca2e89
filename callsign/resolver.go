package callsign

import (
	"sort"
	"time"

	"github.com/teranos/hamcall/dxcc"
)

// Source says which kind of record produced a candidate.
type Source string

const (
	SourceException Source = "exception"
	SourceCompound  Source = "compound"
	SourcePrefix    Source = "prefix"
)

// Candidate is one possible answer for a call.
type Candidate struct {
	ADIF dxcc.ADIF `json:"adif"`
	// Entity is nil for NoDXCC records.
	Entity    *dxcc.Entity    `json:"-"`
	Prefix    *dxcc.Prefix    `json:"-"`
	Exception *dxcc.Exception `json:"-"`
	// Part is the index of the part that matched, or -1 for the full call.
	Part       int     `json:"part"`
	Matched    string  `json:"matched"`
	MatchedLen int     `json:"matched_len"`
	PartLen    int     `json:"part_len"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Name is the entity name the matching record states.
func (c Candidate) Name() string {
	switch {
	case c.Exception != nil:
		return c.Exception.EntityName
	case c.Prefix != nil:
		return c.Prefix.EntityName
	case c.Entity != nil:
		return c.Entity.Name
	}
	return ""
}

// Location is the geographic data of the matching record.
func (c Candidate) Location() dxcc.Location {
	switch {
	case c.Exception != nil:
		return c.Exception.Location
	case c.Prefix != nil:
		return c.Prefix.Location
	case c.Entity != nil:
		return c.Entity.Location
	}
	return dxcc.Location{}
}

// Resolution is the outcome of ResolveCandidates: ranked candidates with
// the winner first, and the operation a special appendix indicates.
type Resolution struct {
	Call       string
	Candidates []Candidate
	Operation  Operation
}

// Winner is the first candidate.
func (r Resolution) Winner() Candidate {
	return r.Candidates[0]
}

// Resolver matches callsign parts against one dataset.
type Resolver struct {
	ds *dxcc.Dataset
	// EnforceWhitelist rejects whitelisted compound matches for calls the
	// owning entity has not approved.
	EnforceWhitelist bool
}

// NewResolver returns a Resolver with whitelist enforcement on.
func NewResolver(ds *dxcc.Dataset) *Resolver {
	return &Resolver{ds: ds, EnforceWhitelist: true}
}

// ResolvePart finds the active prefixes that begin part, one candidate per
// entity at that entity's longest pattern, longest first.
func (r *Resolver) ResolvePart(part string, t time.Time) []Candidate {
	var out []Candidate
	seen := make(map[dxcc.ADIF]bool)

	n := len(part)
	if limit := r.ds.MaxPrefixLen(); n > limit {
		n = limit
	}
	for ; n > 0; n-- {
		for _, p := range r.ds.Prefixes(part[:n], t) {
			if seen[p.ADIF] {
				continue
			}
			seen[p.ADIF] = true
			out = append(out, Candidate{
				ADIF:       p.ADIF,
				Entity:     p.Entity,
				Prefix:     p,
				Matched:    p.Call,
				MatchedLen: n,
				PartLen:    len(part),
				Confidence: float64(n) / float64(len(part)),
				Source:     SourcePrefix,
			})
		}
	}
	return out
}

// ResolveCompound looks for whitelisted compound patterns made of a leading
// slice of one part, a slash, and a later whole part: SV1ABC/A tries
// SV1ABC/A, SV1AB/A, ... SV/A. Patterns keep the order of the call, so
// R/3D2AG never tries 3D2/R. Longer patterns rank first.
func (r *Resolver) ResolveCompound(tokens Tokens, t time.Time) []Candidate {
	var out []Candidate
	parts := tokens.Parts
	for i, pi := range parts {
		for _, pj := range parts[i+1:] {
			for n := len(pi.Norm); n > 0; n-- {
				pattern := pi.Norm[:n] + "/" + pj.Norm
				if len(pattern) > r.ds.MaxPrefixLen() {
					continue
				}
				found := false
				for _, p := range r.ds.Prefixes(pattern, t) {
					if !p.Whitelisted {
						continue
					}
					found = true
					out = append(out, Candidate{
						ADIF:       p.ADIF,
						Entity:     p.Entity,
						Prefix:     p,
						Part:       i,
						Matched:    p.Call,
						MatchedLen: len(pattern),
						PartLen:    len(pi.Norm) + 1 + len(pj.Norm),
						Confidence: 1,
						Source:     SourceCompound,
					})
				}
				if found {
					break
				}
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].MatchedLen > out[b].MatchedLen })
	return out
}

// ResolveCandidates decides which entity a tokenized call belongs to.
//
// Precedence: an exact exception on the full call, then a whitelisted
// compound pattern the entity accepts for this call, then independent
// resolution of each part with secondary indicators set aside. The call
// must begin with a valid prefix. Two entity-bearing parts are separated by
// confidence (matched length over part length); three are rejected.
func (r *Resolver) ResolveCandidates(tokens Tokens, t time.Time) (Resolution, error) {
	call := tokens.Joined()
	res := Resolution{Call: call}

	if problem := tokens.Problem(); problem != "" {
		return res, invalid(call, problem)
	}

	if exc, ok := r.ds.Exception(call, t); ok {
		if exc.IsInvalid() {
			return res, invalidOperation(call)
		}
		res.Candidates = []Candidate{{
			ADIF:       exc.ADIF,
			Entity:     exc.Entity,
			Exception:  exc,
			Part:       -1,
			Matched:    exc.Call,
			MatchedLen: len(call),
			PartLen:    len(call),
			Confidence: 1,
			Source:     SourceException,
		}}
		res.Operation = operationForEntityName(exc.EntityName)
		return res, nil
	}

	if tokens.Compound() {
		for _, c := range r.ResolveCompound(tokens, t) {
			if !r.EnforceWhitelist || CheckWhitelist(r.ds, call, c.ADIF, t) {
				res.Candidates = []Candidate{c}
				res.Operation = operationForEntityName(c.Name())
				return res, nil
			}
		}
	}

	// Set secondary indicators aside.
	parts := tokens.Parts
	var digit *Part
	specials := 0
	active := make([]Part, 0, len(parts))
	for _, p := range parts {
		if !isSecondaryIndicator(p, parts) {
			active = append(active, p)
			continue
		}
		if op := operationForAppendix(p.Norm); op != OperationNone {
			specials++
			res.Operation = op
		}
		if p.SingleDigit() {
			if digit != nil {
				return res, invalid(call, "multiple single digit appendices")
			}
			pp := p
			digit = &pp
		}
	}
	if specials > 1 {
		return res, invalid(call, "multiple special appendices")
	}

	// Resolve the remaining parts independently.
	type resolved struct {
		part  Part
		cands []Candidate
	}
	var bearing []resolved
	for _, p := range active {
		cands := r.ResolvePart(p.Norm, t)
		if p.Index == 0 && len(cands) == 0 {
			return res, noMatch(call, "does not begin with a valid prefix")
		}
		if len(cands) == 0 {
			continue
		}
		for k := range cands {
			cands[k].Part = p.Index
		}
		bearing = append(bearing, resolved{part: p, cands: cands})
	}

	switch len(bearing) {
	case 0:
		return res, noMatch(call, "no part carries a prefix")
	case 1:
		b := bearing[0]
		if digit != nil {
			if home, ok := replaceAreaDigit(b.part.Norm, digit.Norm); ok {
				if cands := r.ResolvePart(home, t); len(cands) > 0 {
					for k := range cands {
						cands[k].Part = b.part.Index
						cands[k].PartLen = len(b.part.Norm)
					}
					b.cands = cands
				}
			}
		}
		if err := checkTie(call, b.cands); err != nil {
			return res, err
		}
		res.Candidates = b.cands
	case 2:
		first, second := bearing[0].cands, bearing[1].cands
		a, b := first[0], second[0]
		// A tie inside the losing part does not matter.
		switch {
		case a.Confidence > b.Confidence:
			if err := checkTie(call, first); err != nil {
				return res, err
			}
			res.Candidates = []Candidate{a, b}
		case b.Confidence > a.Confidence:
			if err := checkTie(call, second); err != nil {
				return res, err
			}
			res.Candidates = []Candidate{b, a}
		default:
			if err := checkTie(call, first); err != nil {
				return res, err
			}
			if err := checkTie(call, second); err != nil {
				return res, err
			}
			if a.ADIF != b.ADIF {
				return res, &AmbiguousError{Call: call, Candidates: []Candidate{a, b}}
			}
			res.Candidates = []Candidate{a, b}
		}
	default:
		return res, invalid(call, "more than two parts carry a prefix")
	}

	if res.Operation == OperationNone {
		res.Operation = operationForEntityName(res.Winner().Name())
	}
	return res, nil
}

// checkTie fails when the best candidates of one part belong to different
// entities at the same matched length.
func checkTie(call string, cands []Candidate) error {
	if len(cands) < 2 || cands[0].MatchedLen != cands[1].MatchedLen {
		return nil
	}
	var tied []Candidate
	for _, c := range cands {
		if c.MatchedLen != cands[0].MatchedLen {
			break
		}
		tied = append(tied, c)
	}
	return &AmbiguousError{Call: call, Candidates: tied}
}

// secondaryIndicators are appendices that describe how a station operates
// rather than where. They only count as such after the first part.
var secondaryIndicators = map[string]bool{
	"P": true, "M": true, "A": true, "MM": true, "AM": true,
	"SAT": true, "QRP": true, "LH": true,
}

func isSecondaryIndicator(p Part, all []Part) bool {
	if p.Index == 0 {
		return false
	}
	if !secondaryIndicators[p.Norm] && !p.SingleDigit() {
		return false
	}
	for _, other := range all {
		if other.Index != p.Index && len(other.Norm) > len(p.Norm) {
			return true
		}
	}
	return false
}

// replaceAreaDigit swaps the last call area digit of home for digit:
// SV0ABC with 9 gives SV9ABC. The digit must have characters on both sides.
func replaceAreaDigit(home, digit string) (string, bool) {
	for i := len(home) - 2; i >= 1; i-- {
		if home[i] >= '0' && home[i] <= '9' {
			return home[:i] + digit + home[i+1:], true
		}
	}
	return "", false
}

// CheckWhitelist reports whether call may count for the entity with the
// given ADIF at t. Entities with a whitelist accept only calls listed as
// exceptions with the same ADIF, and only while the whitelist window
// contains t. Unknown or special ADIFs always pass.
func CheckWhitelist(ds *dxcc.Dataset, call string, adif dxcc.ADIF, t time.Time) bool {
	entity, ok := ds.EntityAt(adif, t)
	if !ok || !entity.Whitelist {
		return true
	}
	if exc, ok := ds.Exception(call, t); ok {
		return exc.ADIF == adif
	}
	return !entity.WhitelistWindow.Contains(t)
}
