package testing

import (
	"strconv"
	"testing"

	"github.com/teranos/hamcall/dxcc"
)

// Records builds dxcc records for tests. Field arguments are name/value
// pairs; "record" goes to the attributes like in the source document.
type Records struct {
	recs []dxcc.Record
}

// NewRecords starts an empty record list.
func NewRecords() *Records {
	return &Records{}
}

func (r *Records) add(kind dxcc.Kind, kv []string) *Records {
	rec := dxcc.Record{Kind: kind, Attrs: map[string]string{}, Fields: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == "record" || kv[i] == "date" {
			rec.Attrs[kv[i]] = kv[i+1]
			continue
		}
		rec.Fields[kv[i]] = kv[i+1]
	}
	r.recs = append(r.recs, rec)
	return r
}

// Header sets the snapshot date.
func (r *Records) Header(date string) *Records {
	return r.add(dxcc.KindHeader, []string{"date", date})
}

// Entity adds an entity record.
func (r *Records) Entity(adif int, name, prefix string, kv ...string) *Records {
	return r.add(dxcc.KindEntity, append([]string{"adif", strconv.Itoa(adif), "name", name, "prefix", prefix}, kv...))
}

// Prefix adds a prefix record.
func (r *Records) Prefix(call string, adif int, kv ...string) *Records {
	return r.add(dxcc.KindPrefix, append([]string{"call", call, "adif", strconv.Itoa(adif)}, kv...))
}

// Exception adds a full-call exception record.
func (r *Records) Exception(call string, adif int, kv ...string) *Records {
	return r.add(dxcc.KindException, append([]string{"call", call, "adif", strconv.Itoa(adif)}, kv...))
}

// Invalid adds an invalid operation record.
func (r *Records) Invalid(call string, kv ...string) *Records {
	return r.add(dxcc.KindInvalid, append([]string{"call", call}, kv...))
}

// Zone adds a CQ zone exception record.
func (r *Records) Zone(call string, zone int, kv ...string) *Records {
	return r.add(dxcc.KindZoneException, append([]string{"call", call, "zone", strconv.Itoa(zone)}, kv...))
}

// Slice returns the records built so far.
func (r *Records) Slice() []dxcc.Record {
	out := make([]dxcc.Record, len(r.recs))
	copy(out, r.recs)
	return out
}

// Load builds a Dataset and fails the test on error.
func (r *Records) Load(t *testing.T) *dxcc.Dataset {
	t.Helper()
	ds, err := dxcc.Load(r.recs)
	if err != nil {
		t.Fatalf("Failed to load test dataset: %v", err)
	}
	return ds
}

// SampleRecords is a small slice of real reference data, enough to
// exercise every resolution rule.
func SampleRecords() *Records {
	return NewRecords().
		Header("2024-05-01T00:00:00+00:00").
		Entity(1, "CANADA", "VE", "cont", "NA", "cqz", "5", "lat", "45.0", "long", "-80.0").
		Entity(6, "ALASKA", "KL7", "cont", "NA", "cqz", "1", "lat", "61.4", "long", "-148.9").
		Entity(15, "ASIATIC RUSSIA", "UA9", "cont", "AS", "cqz", "17", "lat", "55.0", "long", "83.0").
		Entity(22, "PALAU", "T8", "cont", "OC", "cqz", "27", "lat", "7.5", "long", "134.6").
		Entity(47, "EASTER ISLAND", "CE0Y", "cont", "SA", "cqz", "12", "lat", "-27.1", "long", "-109.4").
		Entity(54, "EUROPEAN RUSSIA", "UA", "cont", "EU", "cqz", "16", "lat", "55.8", "long", "37.6").
		Entity(100, "ARGENTINA", "LU", "cont", "SA", "cqz", "13", "lat", "-34.6", "long", "-58.4").
		Entity(112, "CHILE", "CE", "cont", "SA", "cqz", "12", "lat", "-33.4", "long", "-70.6").
		Entity(174, "MIDWAY ISLAND", "KH4", "cont", "OC", "cqz", "31", "lat", "28.2", "long", "-177.4",
			"whitelist", "TRUE", "whitelist_start", "1980-01-01T00:00:00+00:00").
		Entity(176, "FIJI", "3D2", "cont", "OC", "cqz", "32", "lat", "-18.1", "long", "178.4").
		Entity(180, "MOUNT ATHOS", "SV/A", "cont", "EU", "cqz", "20", "lat", "40.2", "long", "24.3",
			"whitelist", "TRUE", "whitelist_start", "1990-01-01T00:00:00+00:00").
		Entity(214, "CORSICA", "TK", "cont", "EU", "cqz", "15", "lat", "42.0", "long", "9.0").
		Entity(227, "FRANCE", "F", "cont", "EU", "cqz", "14", "lat", "46.0", "long", "2.0").
		Entity(229, "GERMAN DEMOCRATIC REPUBLIC", "Y2", "deleted", "TRUE", "cont", "EU", "cqz", "14",
			"lat", "52.5", "long", "13.4", "end", "1990-10-03T00:00:00+00:00").
		Entity(230, "FEDERAL REPUBLIC OF GERMANY", "DL", "cont", "EU", "cqz", "14", "lat", "51.0", "long", "10.0").
		Entity(236, "GREECE", "SV", "cont", "EU", "cqz", "20", "lat", "38.0", "long", "23.7").
		Entity(40, "CRETE", "SV9", "cont", "EU", "cqz", "20", "lat", "35.2", "long", "24.9").
		Entity(266, "NORWAY", "LA", "cont", "EU", "cqz", "14", "lat", "61.0", "long", "9.0").
		Entity(279, "SCOTLAND", "GM", "cont", "EU", "cqz", "14", "lat", "56.8", "long", "-4.2").
		Entity(291, "UNITED STATES OF AMERICA", "K", "cont", "NA", "cqz", "5", "lat", "37.5", "long", "-91.7").
		Entity(376, "QATAR", "A7", "cont", "AS", "cqz", "21", "lat", "25.3", "long", "51.2").
		Entity(460, "ROTUMA ISLAND", "3D2/R", "cont", "OC", "cqz", "32", "lat", "-12.5", "long", "177.1").
		Entity(497, "CROATIA", "9A", "cont", "EU", "cqz", "15", "lat", "45.2", "long", "15.5").
		Prefix("VE", 1).
		Prefix("VY0", 1, "cqz", "2").
		Prefix("KL7", 6).
		Prefix("UA9", 15).
		Prefix("UA0", 15, "cqz", "19").
		Prefix("RW0", 15, "cqz", "19").
		Prefix("T8", 22).
		Prefix("CE0Y", 47).
		Prefix("U", 54).
		Prefix("UA", 54).
		Prefix("R", 54).
		Prefix("LU", 100).
		Prefix("LS", 100).
		Prefix("CE", 112).
		Prefix("KH4", 174).
		Prefix("3D2", 176).
		Prefix("3D2/R", 460).
		Prefix("SV/A", 180).
		Prefix("TK", 214).
		Prefix("FC", 214).
		Prefix("F", 227).
		Prefix("Y2", 229, "end", "1990-10-03T00:00:00+00:00").
		Prefix("Y2", 230, "start", "1990-10-03T00:00:00+00:00").
		Prefix("DL", 230).
		Prefix("DA", 230).
		Prefix("SV", 236).
		Prefix("SV9", 40).
		Prefix("LA", 266).
		Prefix("LM", 266).
		Prefix("GM", 279).
		Prefix("MM", 279).
		Prefix("K", 291).
		Prefix("W", 291).
		Prefix("N", 291).
		Prefix("A7", 376).
		Prefix("9A", 497).
		Exception("SV1DC/A", 180, "entity", "MOUNT ATHOS").
		Exception("W1BOB", 6, "entity", "ALASKA", "cqz", "1").
		Exception("KB5SIW/STS50", 0, "entity", "SATELLITE, INTERNET OR REPEATER").
		Exception("ZY0RK", 0, "entity", "MARITIME MOBILE",
			"start", "1994-08-01T00:00:00+00:00", "end", "1994-09-01T00:00:00+00:00").
		Exception("VE9BAD", 0, "entity", "INVALID").
		Exception("KH4AB", 174, "entity", "MIDWAY ISLAND",
			"start", "1980-04-01T00:00:00+00:00", "end", "1980-05-01T00:00:00+00:00").
		Exception("KH4AB", 291, "entity", "UNITED STATES OF AMERICA",
			"start", "1983-01-01T00:00:00+00:00", "end", "1983-02-01T00:00:00+00:00").
		Invalid("T88A", "start", "1995-06-01T00:00:00+00:00", "end", "1995-08-01T00:00:00+00:00").
		Zone("KD6WW/VY0", 1, "start", "2003-07-01T00:00:00+00:00", "end", "2003-09-01T00:00:00+00:00")
}

// SampleDataset loads SampleRecords.
func SampleDataset(t *testing.T) *dxcc.Dataset {
	t.Helper()
	return SampleRecords().Load(t)
}
