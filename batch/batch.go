// Package batch verifies a log of contacts against the reference data: for
// each call it compares the entity the log claims with the one the
// analyzer resolves at the time of the contact.
package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/sym"
)

// Status is the verdict for one entry.
type Status string

const (
	StatusMatch    Status = "match"
	StatusMismatch Status = "mismatch"
	StatusFailed   Status = "failed"
)

// Outcome is the verdict for one entry.
type Outcome struct {
	Entry
	Status    Status             `json:"status"`
	Got       dxcc.ADIF          `json:"got"`
	Entity    string             `json:"entity,omitempty"`
	Operation callsign.Operation `json:"operation,omitempty"`
	Error     string             `json:"error,omitempty"`

	Result *callsign.Result `json:"-"`
	Err    error            `json:"-"`
}

// Report summarizes a run. Outcomes are in input order.
type Report struct {
	Total      int           `json:"total"`
	Matched    int           `json:"matched"`
	Mismatched int           `json:"mismatched"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
	Outcomes   []Outcome     `json:"outcomes"`
}

// Mismatches returns the outcomes that are not a match.
func (r *Report) Mismatches() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status != StatusMatch {
			out = append(out, o)
		}
	}
	return out
}

// Options configures Run.
type Options struct {
	// Workers is the number of concurrent analyses. Zero means GOMAXPROCS.
	Workers int
	Logger  *zap.SugaredLogger
	// OnOutcome is called for every outcome, from the worker goroutines.
	OnOutcome func(Outcome)
}

// Run analyzes every entry. It stops early only when ctx is cancelled.
func Run(ctx context.Context, a *callsign.Analyzer, entries []Entry, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	outcomes := make([]Outcome, len(entries))

	var hookMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = verify(a, e)
			if opts.OnOutcome != nil {
				hookMu.Lock()
				opts.OnOutcome(outcomes[i])
				hookMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Total: len(entries), Outcomes: outcomes, Duration: time.Since(start)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusMatch:
			report.Matched++
		case StatusMismatch:
			report.Mismatched++
		case StatusFailed:
			report.Failed++
		}
	}

	logger.WithSymbol(log, sym.Batch).Infow("Batch verification finished",
		logger.FieldTotalCount, report.Total,
		logger.FieldMismatches, report.Mismatched,
		"failed", report.Failed,
		logger.FieldDurationMS, report.Duration.Milliseconds())
	return report, nil
}

func verify(a *callsign.Analyzer, e Entry) Outcome {
	o := Outcome{Entry: e}
	res, err := a.Analyze(e.Call, e.At)
	if err != nil {
		o.Status = StatusFailed
		o.Err = err
		o.Error = err.Error()
		return o
	}
	o.Result = res
	o.Got = res.ADIF
	o.Entity = res.Name
	o.Operation = res.Operation
	if res.ADIF == e.Expected {
		o.Status = StatusMatch
	} else {
		o.Status = StatusMismatch
	}
	return o
}
