package dxcc

import (
	"fmt"
	"strings"
	"time"

	"github.com/teranos/hamcall/errors"
)

// ADIF is the ADIF DXCC entity number.
type ADIF uint16

// NoDXCC is the ADIF value the dataset uses for operations that count for no
// entity: maritime mobile, aeronautical mobile and satellite.
const NoDXCC ADIF = 0

// Entity names the dataset uses on exceptions and prefixes that do not
// belong to a real entity.
const (
	EntityInvalid            = "INVALID"
	EntityMaritimeMobile     = "MARITIME MOBILE"
	EntityAeronauticalMobile = "AERONAUTICAL MOBILE"
	EntitySatellite          = "SATELLITE, INTERNET OR REPEATER"
)

// Continent is a two-letter continent code. The empty value means the
// dataset does not state one.
type Continent string

const (
	Africa       Continent = "AF"
	Antarctica   Continent = "AN"
	Asia         Continent = "AS"
	Europe       Continent = "EU"
	NorthAmerica Continent = "NA"
	Oceania      Continent = "OC"
	SouthAmerica Continent = "SA"
)

// Continents lists every valid code.
var Continents = []Continent{Africa, Antarctica, Asia, Europe, NorthAmerica, Oceania, SouthAmerica}

// ParseContinent accepts a code in any case. The empty string parses to
// the empty Continent.
func ParseContinent(s string) (Continent, error) {
	c := Continent(strings.ToUpper(strings.TrimSpace(s)))
	if c == "" {
		return "", nil
	}
	for _, known := range Continents {
		if c == known {
			return c, nil
		}
	}
	return "", errors.Newf("unknown continent %q", s)
}

// Window bounds the validity of a record. A nil bound is open.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && !t.Before(*w.End) {
		return false
	}
	return true
}

// Unbounded reports whether the window has neither start nor end.
func (w Window) Unbounded() bool {
	return w.Start == nil && w.End == nil
}

func (w Window) String() string {
	if w.Unbounded() {
		return "always"
	}
	from, to := "…", "…"
	if w.Start != nil {
		from = w.Start.UTC().Format(time.RFC3339)
	}
	if w.End != nil {
		to = w.End.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("[%s, %s)", from, to)
}

// Location is the geographic part of a record. Prefixes and exceptions
// carry their own Location, already merged with the owning entity's values
// for fields the record leaves out.
type Location struct {
	Continent Continent
	CQZone    int
	// ITUZone is 0 when the dataset does not state it.
	ITUZone   int
	Latitude  float64
	Longitude float64
}

// Entity is one DXCC entity. Historical entities are separate values with
// their own ADIF number and window.
type Entity struct {
	ADIF    ADIF
	Name    string
	Prefix  string
	Deleted bool
	Location
	Window Window

	// Whitelist entities accept only approved calls (exceptions with the
	// same ADIF) while WhitelistWindow contains the query time.
	Whitelist       bool
	WhitelistWindow Window
}

// Prefix maps a callsign prefix pattern to an entity. Call may contain a
// slash for compound patterns such as SV/A.
type Prefix struct {
	Record     int
	Call       string
	ADIF       ADIF
	EntityName string
	// Entity is nil when ADIF is NoDXCC.
	Entity     *Entity
	Location
	Window      Window
	// Whitelisted compound patterns are trusted as a single match instead
	// of being split into their halves.
	Whitelisted bool
}

// Compound reports whether the pattern spans two slash separated parts.
func (p *Prefix) Compound() bool {
	return strings.Contains(p.Call, "/")
}

// Exception maps one full callsign to an entity, overriding prefixes.
type Exception struct {
	Record     int
	Call       string
	ADIF       ADIF
	EntityName string
	// Entity is nil when ADIF is NoDXCC.
	Entity     *Entity
	Location
	Window Window
}

// IsInvalid reports whether the exception marks the call as not valid.
func (e *Exception) IsInvalid() bool {
	return e.EntityName == EntityInvalid
}

// InvalidOperation marks a callsign whose use in the window does not count.
type InvalidOperation struct {
	Record int
	Call   string
	Window Window
}

// ZoneException overrides the CQ zone of one callsign.
type ZoneException struct {
	Record int
	Call   string
	Zone   int
	Window Window
}
