package dxcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hamcall/errors"
)

func TestLoadBuildsIndexes(t *testing.T) {
	ds := loadBase(t)

	assert.Equal(t, ts(t, "2024-05-01T10:00:00Z"), ds.Date)
	assert.Equal(t, Stats{
		Date:              ds.Date,
		Entities:          4,
		Prefixes:          5,
		Exceptions:        3,
		InvalidOperations: 1,
		ZoneExceptions:    1,
	}, ds.Stats())
	assert.Equal(t, 4, ds.MaxPrefixLen())
}

func TestLoadEntityFields(t *testing.T) {
	ds := loadBase(t)

	ddr, ok := ds.Entity(229)
	require.True(t, ok)
	assert.Equal(t, "GERMAN DEMOCRATIC REPUBLIC", ddr.Name)
	assert.Equal(t, "Y2", ddr.Prefix)
	assert.True(t, ddr.Deleted)
	assert.Equal(t, Europe, ddr.Continent)
	assert.Equal(t, 14, ddr.CQZone)
	assert.Equal(t, 0, ddr.ITUZone)
	assert.InDelta(t, 52.5, ddr.Latitude, 1e-9)
	require.NotNil(t, ddr.Window.End)
	assert.Nil(t, ddr.Window.Start)

	athos, ok := ds.Entity(180)
	require.True(t, ok)
	assert.True(t, athos.Whitelist)
	require.NotNil(t, athos.WhitelistWindow.Start)
	assert.Nil(t, athos.WhitelistWindow.End)
}

func TestLoadPrefixInheritsEntityLocation(t *testing.T) {
	ds := loadBase(t)
	at := ts(t, "2020-01-01T00:00:00Z")

	sv := ds.Prefixes("SV", at)
	require.Len(t, sv, 1)
	assert.Equal(t, "GREECE", sv[0].EntityName, "entity name falls back to the entity")
	assert.Equal(t, 20, sv[0].CQZone)
	assert.Equal(t, Europe, sv[0].Continent)
	assert.InDelta(t, 39.0, sv[0].Latitude, 1e-9, "record value overrides entity")
	assert.InDelta(t, 22.0, sv[0].Longitude, 1e-9)
	assert.False(t, sv[0].Whitelisted)

	athos := ds.Prefixes("SV/A", at)
	require.Len(t, athos, 1)
	assert.True(t, athos[0].Whitelisted, "compound patterns default to whitelisted")
	assert.Same(t, athos[0].Entity, mustEntity(t, ds, 180))
}

func TestLoadExplicitWhitelistFlag(t *testing.T) {
	records := append(baseRecords(),
		rec(KindPrefix, "call", "SV/B", "adif", "236", "whitelist", "false"),
		rec(KindPrefix, "call", "SY", "adif", "236", "whitelist", "true"),
	)
	ds, err := Load(records)
	require.NoError(t, err)

	at := ts(t, "2020-01-01T00:00:00Z")
	assert.False(t, ds.Prefixes("SV/B", at)[0].Whitelisted)
	assert.True(t, ds.Prefixes("SY", at)[0].Whitelisted)
}

func TestLoadSpecialExceptions(t *testing.T) {
	ds := loadBase(t)
	at := ts(t, "2020-01-01T00:00:00Z")

	sat, ok := ds.Exception("KB5SIW/STS50", at)
	require.True(t, ok)
	assert.Equal(t, NoDXCC, sat.ADIF)
	assert.Nil(t, sat.Entity)
	assert.False(t, sat.IsInvalid())

	inv, ok := ds.Exception("DL0XX", ts(t, "2001-06-01T00:00:00Z"))
	require.True(t, ok)
	assert.True(t, inv.IsInvalid())
}

func TestLoadEntitiesAfterReferences(t *testing.T) {
	// Prefix records precede their entities in baseRecords.
	_, err := Load(baseRecords())
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		extra   Record
		wantErr error
		field   string
	}{
		{
			name:    "dangling prefix",
			extra:   rec(KindPrefix, "call", "XX", "adif", "999"),
			wantErr: ErrUnknownEntityReference,
			field:   "adif",
		},
		{
			name:    "dangling exception",
			extra:   rec(KindException, "call", "XX1A", "adif", "998"),
			wantErr: ErrUnknownEntityReference,
			field:   "adif",
		},
		{
			name:    "duplicate entity",
			extra:   rec(KindEntity, "adif", "236", "name", "GREECE AGAIN"),
			wantErr: ErrDuplicateEntity,
			field:   "adif",
		},
		{
			name:    "entity with adif zero",
			extra:   rec(KindEntity, "adif", "0", "name", "NOWHERE"),
			wantErr: ErrMalformedField,
			field:   "adif",
		},
		{
			name:    "non numeric adif",
			extra:   rec(KindPrefix, "call", "XX", "adif", "abc"),
			wantErr: ErrMalformedField,
			field:   "adif",
		},
		{
			name:    "cq zone out of range",
			extra:   rec(KindPrefix, "call", "XX", "adif", "236", "cqz", "41"),
			wantErr: ErrMalformedField,
			field:   "cqz",
		},
		{
			name:    "itu zone out of range",
			extra:   rec(KindEntity, "adif", "1", "name", "CANADA", "ituz", "91"),
			wantErr: ErrMalformedField,
			field:   "ituz",
		},
		{
			name:    "latitude out of range",
			extra:   rec(KindEntity, "adif", "1", "name", "CANADA", "lat", "90.5"),
			wantErr: ErrMalformedField,
			field:   "lat",
		},
		{
			name:    "longitude out of range",
			extra:   rec(KindException, "call", "SV2X", "adif", "236", "long", "-181"),
			wantErr: ErrMalformedField,
			field:   "long",
		},
		{
			name:    "bad timestamp",
			extra:   rec(KindPrefix, "call", "XX", "adif", "236", "start", "yesterday"),
			wantErr: ErrMalformedField,
			field:   "start",
		},
		{
			name:    "window ends before it starts",
			extra:   rec(KindPrefix, "call", "XX", "adif", "236", "start", "2001-01-01", "end", "2000-01-01"),
			wantErr: ErrMalformedField,
			field:   "end",
		},
		{
			name:    "unknown continent",
			extra:   rec(KindEntity, "adif", "1", "name", "CANADA", "cont", "XX"),
			wantErr: ErrMalformedField,
			field:   "cont",
		},
		{
			name:    "bad boolean",
			extra:   rec(KindEntity, "adif", "1", "name", "CANADA", "deleted", "maybe"),
			wantErr: ErrMalformedField,
			field:   "deleted",
		},
		{
			name:    "missing call",
			extra:   rec(KindPrefix, "adif", "236"),
			wantErr: ErrMalformedField,
			field:   "call",
		},
		{
			name:    "illegal character in call",
			extra:   rec(KindException, "call", "SV1-X", "adif", "236"),
			wantErr: ErrMalformedField,
			field:   "call",
		},
		{
			name:    "zone exception without zone",
			extra:   rec(KindZoneException, "call", "SV1X"),
			wantErr: ErrMalformedField,
			field:   "zone",
		},
		{
			name:    "bad record attribute",
			extra:   rec(KindInvalid, "record", "x1", "call", "SV1X"),
			wantErr: ErrMalformedField,
			field:   "record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Load(append(baseRecords(), tt.extra))
			require.Error(t, err)
			assert.Nil(t, ds, "a failed load never yields a dataset")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.extra.Kind, le.Kind)
			assert.Equal(t, len(baseRecords()), le.Index)
			assert.Equal(t, tt.field, le.Field)
		})
	}
}

func TestLoadErrorMessage(t *testing.T) {
	_, err := Load(append(baseRecords(), rec(KindPrefix, "call", "XX", "adif", "236", "cqz", "99")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `prefix record 15 field cqz="99": malformed field`)
}

func TestLoadAcceptsTimestampLayouts(t *testing.T) {
	for _, v := range []string{"2001-02-03T04:05:06Z", "2001-02-03T04:05:06+00:00", "2001-02-03T04:05:06", "2001-02-03"} {
		t.Run(v, func(t *testing.T) {
			ds, err := Load(append(baseRecords(), rec(KindInvalid, "call", "SV1X", "start", v)))
			require.NoError(t, err)
			assert.False(t, ds.IsInvalidOperation("SV1X", ts(t, "2001-02-03T00:00:00Z").Add(-1)))
			assert.True(t, ds.IsInvalidOperation("SV1X", ts(t, "2001-02-04T00:00:00Z")))
		})
	}
}

func TestLoadEmpty(t *testing.T) {
	ds, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Entities())
	assert.Equal(t, 0, ds.MaxPrefixLen())
}

func mustEntity(t *testing.T, ds *Dataset, adif ADIF) *Entity {
	t.Helper()
	e, ok := ds.Entity(adif)
	require.True(t, ok)
	return e
}
