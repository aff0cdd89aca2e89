package dxcc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowContainsIsHalfOpen(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	w := Window{Start: &start, End: &end}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", start.Add(-time.Nanosecond), false},
		{"at start", start, true},
		{"inside", start.Add(24 * time.Hour), true},
		{"just before end", end.Add(-time.Nanosecond), true},
		{"at end", end, false},
		{"after end", end.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.at))
		})
	}
}

func TestWindowOpenBounds(t *testing.T) {
	pivot := time.Date(1990, 10, 3, 0, 0, 0, 0, time.UTC)

	assert.True(t, Window{}.Contains(time.Time{}))
	assert.True(t, Window{}.Unbounded())

	onlyStart := Window{Start: &pivot}
	assert.False(t, onlyStart.Contains(pivot.Add(-time.Second)))
	assert.True(t, onlyStart.Contains(pivot.AddDate(50, 0, 0)))

	onlyEnd := Window{End: &pivot}
	assert.True(t, onlyEnd.Contains(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, onlyEnd.Contains(pivot))
}

func TestWindowString(t *testing.T) {
	pivot := time.Date(1990, 10, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "always", Window{}.String())
	assert.Equal(t, "[1990-10-03T00:00:00Z, …)", Window{Start: &pivot}.String())
}

func TestParseContinent(t *testing.T) {
	for _, c := range Continents {
		got, err := ParseContinent(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseContinent(" oc ")
	require.NoError(t, err)
	assert.Equal(t, Oceania, got)

	got, err = ParseContinent("")
	require.NoError(t, err)
	assert.Equal(t, Continent(""), got)

	_, err = ParseContinent("XX")
	assert.Error(t, err)
}

func TestPrefixCompound(t *testing.T) {
	assert.True(t, (&Prefix{Call: "SV/A"}).Compound())
	assert.False(t, (&Prefix{Call: "SV"}).Compound())
}
