package choices

import (
	"errors"
	"fmt"
)

// ErrMissingCode reports a lookup reference without a "code" query parameter.
var ErrMissingCode = errors.New("choices: lookup url has no code parameter")

// RemoteChoiceUnavailable reports a remote lookup that could not be served.
// It is not fatal: Resolve returns it next to an empty choice list.
type RemoteChoiceUnavailable struct {
	Code string
	URL  string
	Err  error
}

func (e *RemoteChoiceUnavailable) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("choices: lookup %q unavailable", e.Code)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteChoiceUnavailable) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
