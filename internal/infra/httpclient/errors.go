package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientFetch matches every TransientFetchError.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrInvalidJSON is returned when a 2xx response body is not JSON.
	// It is never retried.
	ErrInvalidJSON = errors.New("response body is not valid JSON")

	// ErrInvalidRequest is returned when the request cannot be built.
	ErrInvalidRequest = errors.New("invalid request")
)

// TransientFetchError is returned when every attempt of a request failed.
type TransientFetchError struct {
	// URL is the request URL with credentials redacted.
	URL string

	// Attempts is the number of requests made.
	Attempts int

	// Err is the failure of the last attempt.
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransientFetch) hold.
func (e *TransientFetchError) Is(target error) bool {
	return target == ErrTransientFetch
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int

	// Body holds the start of the response body; upstream APIs put their
	// error details there.
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}
