package dxcc

import (
	"fmt"

	"github.com/teranos/hamcall/errors"
)

// Load failures. Match them with errors.Is; errors.As on *LoadError gives
// the offending record.
var (
	// ErrUnknownEntityReference indicates a prefix or exception names an ADIF
	// with no entity
	ErrUnknownEntityReference = errors.New("unknown entity reference")

	// ErrDuplicateEntity indicates two entities share an ADIF number
	ErrDuplicateEntity = errors.New("duplicate entity")

	// ErrMalformedField indicates a field that does not parse or is out of range
	ErrMalformedField = errors.New("malformed field")
)

// LoadError describes the record that aborted a load.
type LoadError struct {
	Kind  Kind
	Index int // position in the record sequence
	Field string
	Value string
	Err   error // one of the sentinels above
	Cause error // parse failure, if any
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s record %d", e.Kind, e.Index)
	if e.Field != "" {
		msg += fmt.Sprintf(" field %s=%q", e.Field, e.Value)
	}
	msg += ": " + e.Err.Error()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
