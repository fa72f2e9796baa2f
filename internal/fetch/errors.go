package fetch

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse reports a response without a body.
var ErrEmptyResponse = errors.New("fetch: empty response")

// TransportError reports a request that failed or was answered with a
// non-success status.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch: %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
