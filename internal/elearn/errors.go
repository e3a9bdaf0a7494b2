package elearn

import (
	"errors"
	"fmt"
)

// ErrAuth marks a failure to establish a session for a subscriber
// (bad or missing credentials). Subscriber-scoped and recoverable by the
// subscriber re-entering credentials.
var ErrAuth = errors.New("authentication failed")

// FetchError wraps any other upstream failure: transient, retried next cycle.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("fetch: %v", e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
