package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("seed must be an absolute http or https URL")

	// ErrNotHTML is returned when a page is not served as HTML.
	ErrNotHTML = errors.New("page is not HTML")

	// ErrBodyTooLarge is returned when a page body exceeds the size limit.
	ErrBodyTooLarge = errors.New("page body too large")

	// ErrUnexpectedStatus is wrapped by StatusError.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// StatusError is returned when a page responds with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, statusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
