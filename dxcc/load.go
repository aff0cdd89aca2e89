package dxcc

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp layouts accepted in records, tried in order. Layouts without a
// zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Load builds a Dataset from the records of one snapshot. Entities are
// built first so every other record can resolve its ADIF reference
// regardless of document order. The first bad record aborts the load.
func Load(records []Record) (*Dataset, error) {
	ds := newDataset()

	for i, rec := range records {
		switch rec.Kind {
		case KindHeader:
			p := parser{rec: rec, index: i}
			if t := p.timestamp("date"); t != nil {
				ds.Date = *t
			}
			if p.err != nil {
				return nil, p.err
			}
		case KindEntity:
			e, err := parseEntity(rec, i)
			if err != nil {
				return nil, err
			}
			if _, dup := ds.entities[e.ADIF]; dup {
				return nil, &LoadError{Kind: rec.Kind, Index: i, Field: "adif", Value: strconv.Itoa(int(e.ADIF)), Err: ErrDuplicateEntity}
			}
			ds.entities[e.ADIF] = e
			ds.entityOrder = append(ds.entityOrder, e)
		}
	}

	for i, rec := range records {
		switch rec.Kind {
		case KindPrefix:
			pfx, err := parsePrefix(rec, i, ds.entities)
			if err != nil {
				return nil, err
			}
			ds.addPrefix(pfx)
		case KindException:
			exc, err := parseException(rec, i, ds.entities)
			if err != nil {
				return nil, err
			}
			ds.exceptions[exc.Call] = append(ds.exceptions[exc.Call], exc)
			ds.stats.Exceptions++
		case KindInvalid:
			p := parser{rec: rec, index: i}
			op := &InvalidOperation{
				Record: p.record(),
				Call:   p.call(),
				Window: p.window("start", "end"),
			}
			if p.err != nil {
				return nil, p.err
			}
			ds.invalid[op.Call] = append(ds.invalid[op.Call], op)
			ds.stats.InvalidOperations++
		case KindZoneException:
			p := parser{rec: rec, index: i}
			z := &ZoneException{
				Record: p.record(),
				Call:   p.call(),
				Window: p.window("start", "end"),
			}
			zone, ok := p.intRange("zone", 1, 40)
			if !ok && p.err == nil {
				p.fail("zone", "", nil)
			}
			z.Zone = zone
			if p.err != nil {
				return nil, p.err
			}
			ds.zones[z.Call] = append(ds.zones[z.Call], z)
			ds.stats.ZoneExceptions++
		}
	}

	ds.stats.Entities = len(ds.entityOrder)
	ds.stats.Date = ds.Date
	return ds, nil
}

func parseEntity(rec Record, index int) (*Entity, error) {
	p := parser{rec: rec, index: index}

	e := &Entity{
		ADIF:   p.adif(),
		Name:   p.required("name"),
		Window: p.window("start", "end"),
	}
	if p.err == nil && e.ADIF == NoDXCC {
		p.fail("adif", "0", nil)
	}
	e.Prefix, _ = rec.Field("prefix")
	e.Prefix = strings.ToUpper(e.Prefix)
	e.Deleted, _ = p.boolean("deleted")
	e.Location = p.location(Location{})
	e.Whitelist, _ = p.boolean("whitelist")
	e.WhitelistWindow = p.window("whitelist_start", "whitelist_end")

	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

func parsePrefix(rec Record, index int, entities map[ADIF]*Entity) (*Prefix, error) {
	p := parser{rec: rec, index: index}

	pfx := &Prefix{
		Record: p.record(),
		Call:   p.call(),
		ADIF:   p.adif(),
		Window: p.window("start", "end"),
	}
	pfx.EntityName, _ = rec.Field("entity")
	if p.err != nil {
		return nil, p.err
	}

	base, err := p.resolve(pfx.ADIF, entities)
	if err != nil {
		return nil, err
	}
	pfx.Entity = base
	if base != nil {
		pfx.Location = p.location(base.Location)
		if pfx.EntityName == "" {
			pfx.EntityName = base.Name
		}
	} else {
		pfx.Location = p.location(Location{})
	}

	if wl, ok := p.boolean("whitelist"); ok {
		pfx.Whitelisted = wl
	} else {
		pfx.Whitelisted = pfx.Compound()
	}

	if p.err != nil {
		return nil, p.err
	}
	return pfx, nil
}

func parseException(rec Record, index int, entities map[ADIF]*Entity) (*Exception, error) {
	p := parser{rec: rec, index: index}

	exc := &Exception{
		Record: p.record(),
		Call:   p.call(),
		ADIF:   p.adif(),
		Window: p.window("start", "end"),
	}
	exc.EntityName, _ = rec.Field("entity")
	if p.err != nil {
		return nil, p.err
	}

	base, err := p.resolve(exc.ADIF, entities)
	if err != nil {
		return nil, err
	}
	exc.Entity = base
	if base != nil {
		exc.Location = p.location(base.Location)
		if exc.EntityName == "" {
			exc.EntityName = base.Name
		}
	} else {
		exc.Location = p.location(Location{})
	}

	if p.err != nil {
		return nil, p.err
	}
	return exc, nil
}

// parser reads typed fields from one record and keeps the first failure.
type parser struct {
	rec   Record
	index int
	err   *LoadError
}

func (p *parser) fail(field, value string, cause error) {
	if p.err == nil {
		p.err = &LoadError{Kind: p.rec.Kind, Index: p.index, Field: field, Value: value, Err: ErrMalformedField, Cause: cause}
	}
}

func (p *parser) required(name string) string {
	v, ok := p.rec.Field(name)
	if !ok {
		p.fail(name, "", nil)
	}
	return v
}

// call reads the normalized callsign or pattern of the record.
func (p *parser) call() string {
	v := strings.ToUpper(p.required("call"))
	if strings.ContainsFunc(v, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '/')
	}) {
		p.fail("call", v, nil)
	}
	return v
}

func (p *parser) record() int {
	v, ok := p.rec.Attr("record")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.fail("record", v, err)
	}
	return n
}

func (p *parser) adif() ADIF {
	v := p.required("adif")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		p.fail("adif", v, err)
		return 0
	}
	return ADIF(n)
}

// resolve maps an ADIF reference to its entity. NoDXCC resolves to nil.
func (p *parser) resolve(adif ADIF, entities map[ADIF]*Entity) (*Entity, error) {
	if adif == NoDXCC {
		return nil, nil
	}
	e, ok := entities[adif]
	if !ok {
		return nil, &LoadError{Kind: p.rec.Kind, Index: p.index, Field: "adif", Value: strconv.Itoa(int(adif)), Err: ErrUnknownEntityReference}
	}
	return e, nil
}

func (p *parser) intRange(name string, lo, hi int) (int, bool) {
	v, ok := p.rec.Field(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		p.fail(name, v, err)
		return 0, false
	}
	return n, true
}

func (p *parser) float(name string, limit float64) (float64, bool) {
	v, ok := p.rec.Field(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || f < -limit || f > limit {
		p.fail(name, v, err)
		return 0, false
	}
	return f, true
}

func (p *parser) boolean(name string) (bool, bool) {
	v, ok := p.rec.Field(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		p.fail(name, v, err)
		return false, false
	}
	return b, true
}

func (p *parser) continent(name string) (Continent, bool) {
	v, ok := p.rec.Field(name)
	if !ok {
		return "", false
	}
	c, err := ParseContinent(v)
	if err != nil {
		p.fail(name, v, err)
		return "", false
	}
	return c, true
}

func (p *parser) timestamp(name string) *time.Time {
	v, ok := p.rec.Field(name)
	if !ok {
		v, ok = p.rec.Attr(name)
	}
	if !ok {
		return nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			t = t.UTC()
			return &t
		}
		lastErr = err
	}
	p.fail(name, v, lastErr)
	return nil
}

func (p *parser) window(startName, endName string) Window {
	w := Window{Start: p.timestamp(startName), End: p.timestamp(endName)}
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		p.fail(endName, w.End.Format(time.RFC3339), nil)
	}
	return w
}

// location overlays the record's geographic fields on base.
func (p *parser) location(base Location) Location {
	loc := base
	if c, ok := p.continent("cont"); ok {
		loc.Continent = c
	}
	if z, ok := p.intRange("cqz", 1, 40); ok {
		loc.CQZone = z
	}
	if z, ok := p.intRange("ituz", 1, 90); ok {
		loc.ITUZone = z
	}
	if f, ok := p.float("lat", 90); ok {
		loc.Latitude = f
	}
	if f, ok := p.float("long", 180); ok {
		loc.Longitude = f
	}
	return loc
}
