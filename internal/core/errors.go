package core

import (
	"errors"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/versions"
)

// Re-exported so sources only import core.
var (
	ErrNotFound      = client.ErrNotFound
	ErrConfiguration = versions.ErrConfiguration
)

// ErrMissingDependency is returned by New when a source is built without
// a collaborator it cannot work without.
var ErrMissingDependency = errors.New("missing dependency")

// ErrUnknownSource is returned by New for an unregistered name.
var ErrUnknownSource = errors.New("unknown source")

type (
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)

// IsConfiguration reports whether err must propagate instead of being
// replaced by stale data.
func IsConfiguration(err error) bool {
	return errors.Is(err, versions.ErrConfiguration)
}

// IsNotFound reports whether err means the upstream has nothing for the
// request, either via ErrNotFound or an HTTP 404.
func IsNotFound(err error) bool {
	if errors.Is(err, client.ErrNotFound) {
		return true
	}
	var httpErr *client.HTTPError
	return errors.As(err, &httpErr) && httpErr.IsNotFound()
}
