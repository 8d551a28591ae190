package client

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an upstream resource does not exist.
var ErrNotFound = errors.New("not found")

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// NotFoundError wraps ErrNotFound with additional context.
type NotFoundError struct {
	Upstream    string
	BaseVersion string
	Version     string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Version != "" && e.BaseVersion != "":
		return fmt.Sprintf("%s: version %s for %s not found", e.Upstream, e.Version, e.BaseVersion)
	case e.Version != "":
		return fmt.Sprintf("%s: version %s not found", e.Upstream, e.Version)
	case e.BaseVersion != "":
		return fmt.Sprintf("%s: no versions for %s", e.Upstream, e.BaseVersion)
	}
	return fmt.Sprintf("%s: not found", e.Upstream)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError is returned when the upstream rate limits requests.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}
