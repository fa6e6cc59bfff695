package llhls

import (
	"errors"
	"net/http"
)

var (
	// ErrProtocolViolation marks a malformed query combination, such as
	// _HLS_part without _HLS_msn.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrOutOfRange marks a request too far past the live edge to ever be
	// satisfied soon.
	ErrOutOfRange = errors.New("request beyond the live edge")
	// ErrStale marks a sequence that has been evicted from the window.
	ErrStale = errors.New("sequence no longer retained")
	// ErrNotFound marks a sequence that does not exist.
	ErrNotFound = errors.New("segment not found")
	// ErrRangeNotSatisfiable marks a byte range past the end of a sealed
	// segment.
	ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")
	// ErrStreamClosed is returned from producer calls after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// httpError maps the error taxonomy onto response status codes
func httpError(rw http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, ErrProtocolViolation), errors.Is(err, ErrOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, ErrStale), errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrRangeNotSatisfiable):
		status = http.StatusRequestedRangeNotSatisfiable
	default:
		status = http.StatusInternalServerError
	}
	http.Error(rw, err.Error(), status)
}
