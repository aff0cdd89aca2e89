package server

import (
	"net/http"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/errors"
)

// Sentinel errors for request handling.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrRateLimited indicates the client exceeded its request budget
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBatchTooLarge indicates a batch lookup with too many calls
	ErrBatchTooLarge = errors.Mark(errors.New("batch too large"), errors.ErrInvalidRequest)

	// ErrDraining indicates the server is shutting down
	ErrDraining = errors.Mark(errors.New("server is shutting down"), errors.ErrServiceUnavailable)
)

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.IsServiceUnavailableError(err):
		return http.StatusServiceUnavailable
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.IsNotFoundError(err), errors.Is(err, callsign.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, callsign.ErrAmbiguous):
		return http.StatusConflict
	case errors.Is(err, callsign.ErrStructurallyInvalid), errors.Is(err, callsign.ErrInvalidOperation):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
