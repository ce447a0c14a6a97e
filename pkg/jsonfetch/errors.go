package jsonfetch

import (
	"errors"
	"fmt"
)

// ErrRejected matches every rejection produced by a Future.
var ErrRejected = errors.New("json fetch rejected")

// StatusError reports a completed request whose status was not 200.
type StatusError struct {
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: unexpected status %s", e.Response.URL(), e.Response.Status())
}

func (e *StatusError) Is(target error) bool { return target == ErrRejected }

// TransportError reports a request that could not be completed at all.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("get %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrRejected }

// StatusCodeOf returns the status carried by a rejection, 0 for transport failures.
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Response.StatusCode()
	}
	return 0
}
