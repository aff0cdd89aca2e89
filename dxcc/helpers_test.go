package dxcc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rec(kind Kind, kv ...string) Record {
	r := Record{Kind: kind, Attrs: map[string]string{}, Fields: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == "record" {
			r.Attrs[kv[i]] = kv[i+1]
			continue
		}
		r.Fields[kv[i]] = kv[i+1]
	}
	return r
}

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func baseRecords() []Record {
	return []Record{
		{Kind: KindHeader, Attrs: map[string]string{"date": "2024-05-01T10:00:00+00:00"}},
		rec(KindPrefix, "record", "1", "call", "Y2", "entity", "GERMAN DEMOCRATIC REPUBLIC", "adif", "229", "end", "1990-10-02T23:59:59+00:00"),
		rec(KindPrefix, "record", "2", "call", "Y2", "entity", "FEDERAL REPUBLIC OF GERMANY", "adif", "230", "start", "1990-10-03T00:00:00+00:00"),
		rec(KindPrefix, "record", "3", "call", "DA", "adif", "230", "cqz", "14"),
		rec(KindPrefix, "record", "4", "call", "SV/A", "entity", "MOUNT ATHOS", "adif", "180"),
		rec(KindPrefix, "record", "5", "call", "sv", "adif", "236", "lat", "39.0", "long", "22.0"),
		rec(KindEntity, "adif", "229", "name", "GERMAN DEMOCRATIC REPUBLIC", "prefix", "Y2", "deleted", "TRUE",
			"cqz", "14", "cont", "EU", "lat", "52.5", "long", "13.4", "end", "1990-10-02T23:59:59+00:00"),
		rec(KindEntity, "adif", "230", "name", "FEDERAL REPUBLIC OF GERMANY", "prefix", "DL", "deleted", "FALSE",
			"cqz", "14", "cont", "EU", "lat", "51.0", "long", "10.0"),
		rec(KindEntity, "adif", "236", "name", "GREECE", "prefix", "SV", "cqz", "20", "cont", "EU", "lat", "38.0", "long", "23.7"),
		rec(KindEntity, "adif", "180", "name", "MOUNT ATHOS", "prefix", "SV/A", "cqz", "20", "cont", "EU",
			"lat", "40.0", "long", "24.0", "whitelist", "TRUE", "whitelist_start", "2000-01-01T00:00:00+00:00"),
		rec(KindException, "record", "10", "call", "SV1DC/A", "entity", "MOUNT ATHOS", "adif", "180"),
		rec(KindException, "record", "11", "call", "KB5SIW/STS50", "entity", EntitySatellite, "adif", "0"),
		rec(KindException, "record", "12", "call", "DL0XX", "entity", EntityInvalid, "adif", "0",
			"start", "2001-01-01T00:00:00+00:00", "end", "2002-01-01T00:00:00+00:00"),
		rec(KindInvalid, "record", "20", "call", "T88A", "start", "1995-06-01T00:00:00+00:00", "end", "1995-08-01T00:00:00+00:00"),
		rec(KindZoneException, "record", "30", "call", "DA1AB", "zone", "15"),
	}
}

func loadBase(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Load(baseRecords())
	require.NoError(t, err)
	return ds
}
