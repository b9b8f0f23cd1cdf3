package linkcheck

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors recorded on failed link checks.
var (
	// ErrNetworkError indicates the host could not be reached.
	ErrNetworkError = errors.New("network error")

	// ErrRateLimited indicates the remote host answered 429.
	ErrRateLimited = errors.New("rate limited by remote host")

	// ErrBrokenLink indicates a 4xx or 5xx response.
	ErrBrokenLink = errors.New("broken link")
)

// StatusError carries the HTTP status of a broken link.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps the status onto ErrRateLimited or ErrBrokenLink.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return ErrBrokenLink
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return &StatusError{StatusCode: resp.StatusCode, URL: url}
}
