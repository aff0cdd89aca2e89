package batch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/errors"
	hamtest "github.com/teranos/hamcall/internal/testing"
)

var at2020 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleEntries() []Entry {
	return []Entry{
		{Line: 1, Call: "DL1ABC", Expected: 230, At: at2020},
		{Line: 2, Call: "SV1ABC/A", Expected: 180, At: at2020},
		{Line: 3, Call: "X5ABC", Expected: 1, At: at2020},
		{Line: 4, Call: "Y21ABC", Expected: 229, At: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Line: 5, Call: "W1AW/MM", Expected: 0, At: at2020},
		{Line: 6, Call: "F0BAU/FC", Expected: 214, At: at2020},
	}
}

func TestRun(t *testing.T) {
	a := callsign.NewAnalyzer(hamtest.SampleDataset(t))

	var seen atomic.Int32
	report, err := Run(context.Background(), a, sampleEntries(), Options{
		Workers:   3,
		Logger:    zaptest.NewLogger(t).Sugar(),
		OnOutcome: func(Outcome) { seen.Add(1) },
	})
	require.NoError(t, err)

	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 4, report.Matched)
	assert.Equal(t, 1, report.Mismatched)
	assert.Equal(t, 1, report.Failed)
	assert.EqualValues(t, 6, seen.Load())

	for i, o := range report.Outcomes {
		assert.Equal(t, i+1, o.Line, "outcomes keep input order")
	}

	mm := report.Mismatches()
	require.Len(t, mm, 2)
	assert.Equal(t, "SV1ABC/A", mm[0].Call)
	assert.Equal(t, dxcc.ADIF(236), mm[0].Got)
	assert.Equal(t, "GREECE", mm[0].Entity)
	assert.Equal(t, StatusFailed, mm[1].Status)
	assert.True(t, errors.Is(mm[1].Err, callsign.ErrNoMatch))

	maritime := report.Outcomes[4]
	assert.Equal(t, StatusMatch, maritime.Status)
	assert.Equal(t, callsign.OperationMaritimeMobile, maritime.Operation)
}

func TestRunMatchesSequential(t *testing.T) {
	a := callsign.NewAnalyzer(hamtest.SampleDataset(t))

	one, err := Run(context.Background(), a, sampleEntries(), Options{Workers: 1})
	require.NoError(t, err)
	many, err := Run(context.Background(), a, sampleEntries(), Options{Workers: 8})
	require.NoError(t, err)

	for i := range one.Outcomes {
		assert.Equal(t, one.Outcomes[i].Status, many.Outcomes[i].Status)
		assert.Equal(t, one.Outcomes[i].Got, many.Outcomes[i].Got)
	}
}

func TestRunCancelled(t *testing.T) {
	a := callsign.NewAnalyzer(hamtest.SampleDataset(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, a, sampleEntries(), Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunEmpty(t *testing.T) {
	a := callsign.NewAnalyzer(hamtest.SampleDataset(t))
	report, err := Run(context.Background(), a, nil, Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Mismatches())
}
