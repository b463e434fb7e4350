package notifications

import (
	"errors"
	"fmt"
)

var ErrTransport = errors.New("notification transport failed")

// TransportError reports a failed delivery. Transient failures are retried
// by the dispatcher; permanent ones are not.
type TransportError struct {
	IntentID  string
	Kind      Kind
	Attempts  int
	Transient bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deliver %s %s after %d attempt(s): %v", e.Kind, e.IntentID, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &TransportError{Err: err}
}

func transient(err error) bool {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Transient
	}
	return true
}
