package picks

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Client.FetchPage. Inspect them with errors.Is.
var (
	// ErrRateLimited means the upstream answered 429 Too Many Requests.
	ErrRateLimited = errors.New("rate limited")
	// ErrRequestFailed covers any other non-200 status and transport failures.
	ErrRequestFailed = errors.New("request failed")
	// ErrMalformedResponse means a 200 response whose body is not JSON.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError carries the HTTP status of a rejected request.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("nyt API status %d", e.StatusCode)
	}
	return fmt.Sprintf("nyt API status %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps the status onto the package sentinels.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == 429 {
		return ErrRateLimited
	}
	return ErrRequestFailed
}
