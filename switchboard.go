// Package switchboard resolves releases of Minecraft companion projects
// (loaders, mappings and patch distributions) against the list of
// Minecraft versions.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/switchboard"
//		_ "github.com/git-pkgs/switchboard/all"
//	)
//
//	cat := switchboard.NewCatalog(switchboard.DefaultClient())
//	if err := cat.Refresh(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	forge, err := switchboard.New("forge", switchboard.Deps{Catalog: cat})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mc, _ := cat.FromID("1.20.1")
//	latest, ok, err := forge.LatestFor(ctx, mc, false)
//
// Sources must be imported to be registered; the all subpackage imports
// every one of them.
package switchboard

import (
	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
)

// Re-export types from internal/core
type (
	// Source is the interface implemented by every upstream.
	Source = core.Source

	// Release is one companion release. It is one of Plain, LoaderBuild
	// or TaggedRelease.
	Release       = core.Release
	Plain         = core.Plain
	LoaderBuild   = core.LoaderBuild
	TaggedRelease = core.TaggedRelease

	Recommender     = core.Recommender
	Grouper         = core.Grouper
	Finder          = core.Finder
	URLProvider     = core.URLProvider
	ArtifactLocator = core.ArtifactLocator
	DocumentStore   = core.DocumentStore

	// Deps are the collaborators handed to a source.
	Deps = core.Deps
)

// Re-export types from internal/catalog
type (
	Catalog = catalog.Catalog
	Version = catalog.Version
	Kind    = catalog.Kind
)

const (
	KindRelease  = catalog.Release
	KindSnapshot = catalog.Snapshot
	KindOldBeta  = catalog.OldBeta
	KindOldAlpha = catalog.OldAlpha
)

// Re-export types from client
type (
	Client      = client.Client
	Option      = client.Option
	URLBuilder  = client.URLBuilder
	RateLimiter = client.RateLimiter
)

// Re-export errors
var (
	ErrNotFound          = core.ErrNotFound
	ErrConfiguration     = core.ErrConfiguration
	ErrMissingDependency = core.ErrMissingDependency
	ErrUnknownSource     = core.ErrUnknownSource
)

type (
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)

// New creates the named source. deps.Catalog is required; a nil client is
// replaced with DefaultClient().
func New(name string, deps Deps) (Source, error) {
	return core.New(name, deps)
}

// NewCatalog creates an empty catalog reading the default manifest.
func NewCatalog(c *Client) *Catalog {
	return catalog.New(c)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

var (
	WithTimeout    = client.WithTimeout
	WithMaxRetries = client.WithMaxRetries
)

// Names returns every registered source.
func Names() []string {
	return core.Names()
}

// DefaultURL returns the default feed of a source.
func DefaultURL(name string) string {
	return core.DefaultURL(name)
}

// BuildURLs returns the non-empty download, docs and purl URLs of a
// release.
func BuildURLs(urls URLBuilder, baseVersion, version string) map[string]string {
	return client.BuildURLs(urls, baseVersion, version)
}
