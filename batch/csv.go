package batch

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/errors"
)

// columns is the layout of a log export without a header row.
var columns = []string{"CALL", "ADIF", "QSO_DATE", "TIME_ON"}

// ErrMalformedRow is returned for rows that cannot be turned into an Entry.
var ErrMalformedRow = errors.New("malformed row")

// row is one CSV line as exported from a logging program. Column names are
// the ADIF field names.
type row struct {
	Call    string `csv:"CALL"`
	ADIF    string `csv:"ADIF"`
	QSODate string `csv:"QSO_DATE"`
	TimeOn  string `csv:"TIME_ON"`
}

// Entry is one call to verify: the entity a log claims for it at the time
// of the contact.
type Entry struct {
	Line     int       `json:"line"`
	Call     string    `json:"call"`
	Expected dxcc.ADIF `json:"expected"`
	At       time.Time `json:"at"`
}

// ReadCSV reads entries from r. A header row naming the columns is
// optional and may order the columns freely; without one the columns are
// CALL, ADIF, QSO_DATE, TIME_ON.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read first row")
	}

	var (
		src    csvutil.Reader = cr
		header                = columns
		line                  = 1
	)
	if isHeader(first) {
		header = make([]string, len(first))
		for i, h := range first {
			header[i] = strings.ToUpper(strings.TrimSpace(h))
		}
		line = 2
	} else {
		src = &replay{first: first, r: cr}
	}

	dec, err := csvutil.NewDecoder(src, header...)
	if err != nil {
		return nil, errors.Wrap(err, "create csv decoder")
	}

	var entries []Entry
	for ; ; line++ {
		var rw row
		if err := dec.Decode(&rw); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if rw.Call == "" && rw.ADIF == "" && rw.QSODate == "" {
			continue
		}
		e, err := rw.entry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// isHeader reports whether rec names columns rather than holding a contact.
func isHeader(rec []string) bool {
	for _, f := range rec {
		if strings.EqualFold(strings.TrimSpace(f), "CALL") {
			return true
		}
	}
	return false
}

func (r row) entry(line int) (Entry, error) {
	fail := func(field, value string) error {
		return errors.Wrapf(ErrMalformedRow, "line %d: %s %q", line, field, value)
	}

	call := strings.TrimSpace(r.Call)
	if call == "" {
		return Entry{}, fail("CALL", r.Call)
	}
	adif, err := strconv.ParseUint(strings.TrimSpace(r.ADIF), 10, 16)
	if err != nil {
		return Entry{}, fail("ADIF", r.ADIF)
	}
	at, err := qsoTime(strings.TrimSpace(r.QSODate), strings.TrimSpace(r.TimeOn))
	if err != nil {
		return Entry{}, fail("QSO_DATE/TIME_ON", r.QSODate+" "+r.TimeOn)
	}
	return Entry{Line: line, Call: call, Expected: dxcc.ADIF(adif), At: at}, nil
}

// qsoTime combines ADIF QSO_DATE (YYYYMMDD) and TIME_ON (HHMM or HHMMSS),
// both UTC.
func qsoTime(date, timeOn string) (time.Time, error) {
	switch len(timeOn) {
	case 0:
		return time.Parse("20060102", date)
	case 4:
		return time.Parse("20060102 1504", date+" "+timeOn)
	case 6:
		return time.Parse("20060102 150405", date+" "+timeOn)
	}
	return time.Time{}, errors.Newf("time %q", timeOn)
}

// replay hands back a record that was already read before continuing with
// the underlying reader.
type replay struct {
	first []string
	r     *csv.Reader
}

func (p *replay) Read() ([]string, error) {
	if p.first != nil {
		rec := p.first
		p.first = nil
		return rec, nil
	}
	return p.r.Read()
}

// mismatchRow is the CSV layout of WriteMismatches.
type mismatchRow struct {
	Line     int    `csv:"LINE"`
	Call     string `csv:"CALL"`
	QSODate  string `csv:"QSO_DATE"`
	TimeOn   string `csv:"TIME_ON"`
	Expected int    `csv:"EXPECTED_ADIF"`
	Got      int    `csv:"GOT_ADIF"`
	Entity   string `csv:"GOT_ENTITY,omitempty"`
	Error    string `csv:"ERROR,omitempty"`
}

// WriteMismatches writes every outcome that is not a match as CSV.
func WriteMismatches(w io.Writer, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(mismatchRow{}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, o := range outcomes {
		if o.Status == StatusMatch {
			continue
		}
		if err := enc.Encode(mismatchRow{
			Line:     o.Line,
			Call:     o.Call,
			QSODate:  o.At.Format("20060102"),
			TimeOn:   o.At.Format("1504"),
			Expected: int(o.Expected),
			Got:      int(o.Got),
			Entity:   o.Entity,
			Error:    o.Error,
		}); err != nil {
			return errors.Wrapf(err, "write line %d", o.Line)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
