package ctyxml

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/errors"
)

const fixture = "testdata/cty.xml"

func countKinds(recs []dxcc.Record) map[dxcc.Kind]int {
	m := make(map[dxcc.Kind]int)
	for _, r := range recs {
		m[r.Kind]++
	}
	return m
}

func TestOpenFixture(t *testing.T) {
	recs, err := Open(fixture)
	require.NoError(t, err)

	require.NotEmpty(t, recs)
	header := recs[0]
	assert.Equal(t, dxcc.KindHeader, header.Kind)
	date, ok := header.Attr("date")
	assert.True(t, ok)
	assert.Equal(t, "2024-05-01T10:00:03+00:00", date)
	_, hasNS := header.Attrs["xmlns"]
	assert.False(t, hasNS)

	assert.Equal(t, map[dxcc.Kind]int{
		dxcc.KindHeader:        1,
		dxcc.KindEntity:        6,
		dxcc.KindException:     3,
		dxcc.KindPrefix:        9,
		dxcc.KindInvalid:       1,
		dxcc.KindZoneException: 1,
	}, countKinds(recs))
}

func TestDecodeRecordFields(t *testing.T) {
	doc := `<clublog date="2024-01-01T00:00:00+00:00">
<prefixes><prefix record="7"><call>VY0</call><adif>1</adif><cqz>2</cqz><lat></lat></prefix></prefixes>
</clublog>`
	recs, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	pfx := recs[1]
	assert.Equal(t, dxcc.KindPrefix, pfx.Kind)
	assert.Equal(t, "7", pfx.Attrs["record"])
	call, _ := pfx.Field("call")
	assert.Equal(t, "VY0", call)
	_, ok := pfx.Field("lat")
	assert.False(t, ok, "empty element counts as absent")
}

func TestDecodeIgnoresUnknownElements(t *testing.T) {
	doc := `<clublog><notes><note>hi</note></notes><entities><entity><adif>1</adif><name>CANADA</name></entity></entities></clublog>`
	recs, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, map[dxcc.Kind]int{dxcc.KindHeader: 1, dxcc.KindEntity: 1}, countKinds(recs))
}

func TestDecodeGzip(t *testing.T) {
	raw, err := os.ReadFile(fixture)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	plain, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	compressed, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, plain, compressed)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyDocument))

	_, err = Decode(strings.NewReader("<clublog><entities><entity><adif>1</adif>"))
	assert.Error(t, err)

	_, err = Decode(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}

func TestLoadFileAnalyze(t *testing.T) {
	ds, err := LoadFile(fixture)
	require.NoError(t, err)

	stats := ds.Stats()
	assert.Equal(t, 6, stats.Entities)
	assert.Equal(t, 9, stats.Prefixes)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 3, 0, time.UTC), ds.Date)

	a := callsign.NewAnalyzer(ds)
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := a.Analyze("SV1DC/A", at)
	require.NoError(t, err)
	assert.Equal(t, dxcc.ADIF(180), res.ADIF)

	res, err = a.Analyze("DL1ABC", at)
	require.NoError(t, err)
	assert.Equal(t, "FEDERAL REPUBLIC OF GERMANY", res.Name)

	res, err = a.Analyze("KD6WW/VY0", time.Date(2003, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, dxcc.ADIF(1), res.ADIF)
	assert.Equal(t, 1, res.CQZone)

	_, err = a.Analyze("W1BAD", time.Date(2001, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, callsign.ErrInvalidOperation))
}

func TestLoadFileRejectsBadReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	doc := `<clublog><prefixes><prefix record="1"><call>ZZ</call><adif>999</adif></prefix></prefixes></clublog>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadFile(path)
	assert.True(t, errors.Is(err, dxcc.ErrUnknownEntityReference))
}
