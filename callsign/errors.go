package callsign

import (
	"fmt"
	"strings"

	"github.com/teranos/hamcall/errors"
)

// Query failures. Every error returned by Analyze matches exactly one.
var (
	// ErrNoMatch indicates no active prefix or exception covers the call
	ErrNoMatch = errors.New("no matching prefix")

	// ErrAmbiguous indicates equally ranked candidates from different entities
	ErrAmbiguous = errors.New("ambiguous callsign")

	// ErrStructurallyInvalid indicates a call that cannot be decomposed
	ErrStructurallyInvalid = errors.New("structurally invalid callsign")

	// ErrInvalidOperation indicates the dataset marks this use of the call invalid
	ErrInvalidOperation = errors.New("invalid operation")
)

// AmbiguousError carries the candidates that tie-breaking could not separate.
type AmbiguousError struct {
	Call       string
	Candidates []Candidate
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = fmt.Sprintf("%s=%d", c.Matched, c.ADIF)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Call, ErrAmbiguous, strings.Join(names, ", "))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguous
}

func invalid(call, reason string) error {
	return errors.Wrapf(ErrStructurallyInvalid, "%s: %s", call, reason)
}

func noMatch(call, reason string) error {
	return errors.Wrapf(ErrNoMatch, "%s: %s", call, reason)
}

func invalidOperation(call string) error {
	return errors.Wrapf(ErrInvalidOperation, "%s", call)
}

// Outcome names the class of an Analyze error for logs, metrics and the
// lookup log: "ok", "no_match", "ambiguous", "invalid", "invalid_operation"
// or "error" for anything else.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, ErrStructurallyInvalid):
		return "invalid"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	}
	return "error"
}
