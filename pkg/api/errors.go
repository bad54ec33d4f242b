package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// TransportError means the request never produced a usable response: the
// backend was unreachable, the connection dropped, or the body could not be read.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response. Detail holds the backend's "detail" field
// when the body was JSON, otherwise the raw (truncated) body.
type HTTPError struct {
	Op         string
	URL        string
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Op, e.URL, e.StatusCode, e.Detail)
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTPError.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
