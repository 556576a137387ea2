package okx

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is a network failure or a non-2xx response.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("okx %s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("okx %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether the request may succeed on retry.
func (e *TransportError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// MalformedResponseError is a 2xx response that cannot be used: a non-zero
// API code, an undecodable body or an empty data set.
type MalformedResponseError struct {
	Op   string
	Code string
	Msg  string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("okx %s: malformed response: %v", e.Op, e.Err)
	case e.Code != "":
		return fmt.Sprintf("okx %s: api code %s: %s", e.Op, e.Code, e.Msg)
	default:
		return fmt.Sprintf("okx %s: malformed response: %s", e.Op, e.Msg)
	}
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ErrorKind returns a low-cardinality label for metrics.
func ErrorKind(err error) string {
	var te *TransportError
	var me *MalformedResponseError
	switch {
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &me):
		return "malformed"
	default:
		return "unknown"
	}
}
