package fetch

import (
	"errors"
	"fmt"
)

// ErrMaxRetries is the sentinel wrapped by MaxRetriesError for errors.Is checks.
var ErrMaxRetries = errors.New("max retries exceeded")

// MaxRetriesError reports that every attempt against a URL failed.
type MaxRetriesError struct {
	URL string
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("max retries exceeded for %s", e.URL)
}

func (e *MaxRetriesError) Unwrap() error {
	return ErrMaxRetries
}

// UnexpectedStatusError reports a response status outside the accepted set.
// It is fatal for the request and never retried.
type UnexpectedStatusError struct {
	URL        string
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// UnsupportedEncodingError reports a Content-Encoding the client cannot decode.
type UnsupportedEncodingError struct {
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("unsupported content encoding %q", e.Encoding)
}
