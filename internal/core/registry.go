package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/cache"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"go.uber.org/zap"
)

// Source is implemented by every upstream. Lookups never fail because an
// upstream is unreachable: they fall back to stale data or an empty
// result. Errors are reserved for data that cannot be ordered at all.
type Source interface {
	// Name returns the registered name, e.g. "forge".
	Name() string

	// LatestFor returns the newest release for base.
	LatestFor(ctx context.Context, base catalog.Version, includePrereleases bool) (Release, bool, error)

	// ListAll returns every known release, newest first.
	ListAll(ctx context.Context, includePrereleases bool) ([]Release, error)

	// ListFor returns the releases for base, newest first.
	ListFor(ctx context.Context, base catalog.Version, includePrereleases bool) ([]Release, error)

	// ForceRefresh drops cached data and fetches it again.
	ForceRefresh(ctx context.Context, includePrereleases bool) error
}

// Recommender is implemented by sources with a "recommended" designation.
type Recommender interface {
	RecommendedFor(ctx context.Context, base catalog.Version) (Release, bool, error)
	IsRecommended(ctx context.Context, base catalog.Version, version string) (bool, error)
}

// Grouper is implemented by sources that can list releases by base version.
type Grouper interface {
	Grouped(ctx context.Context, includePrereleases bool) (map[string][]Release, error)
}

// Finder is implemented by sources that can look up a single release,
// including ones missing from the cached listing.
type Finder interface {
	FindVersion(ctx context.Context, base catalog.Version, version string) (Release, bool, error)
}

// URLProvider is implemented by sources whose releases are published as
// artifacts with predictable URLs.
type URLProvider interface {
	URLs() client.URLBuilder
}

// ArtifactLocator is implemented by sources whose artifact URL has to be
// looked up rather than built.
type ArtifactLocator interface {
	Locate(ctx context.Context, base catalog.Version, version string) (string, error)
}

// DocumentStore returns the per-version metadata document of a base
// version.
type DocumentStore interface {
	Document(ctx context.Context, v catalog.Version) (map[string]any, error)
}

// Deps are the collaborators handed to a source factory.
type Deps struct {
	Client  *client.Client
	Catalog *catalog.Catalog
	Logger  *zap.Logger
	Metrics Observer
	// Documents is optional; sources that locate artifacts through the
	// per-version metadata document need it.
	Documents DocumentStore

	// TTL is the cache lifetime; zero uses cache.DefaultTTL.
	TTL time.Duration
	// BaseURL overrides the upstream's default feed location.
	BaseURL string
	// WorkDir is scratch space for sources that need disk.
	WorkDir string

	CacheOptions []cache.Option
}

// Factory builds a source from its dependencies.
type Factory func(deps Deps) (Source, error)

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a source factory to the global registry.
// defaultURL is the upstream feed used when Deps.BaseURL is empty.
func Register(name string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
	defaults[name] = defaultURL
}

// New creates the named source. A nil client is replaced with
// client.DefaultClient(); a nil catalog is an error.
func New(name string, deps Deps) (Source, error) {
	mu.RLock()
	factory, ok := factories[name]
	defaultURL := defaults[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("%s: %w: catalog", name, ErrMissingDependency)
	}
	if deps.BaseURL == "" {
		deps.BaseURL = defaultURL
	}
	if deps.Client == nil {
		deps.Client = client.DefaultClient()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopObserver{}
	}

	return factory(deps)
}

// Names returns every registered source name, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultURL returns the default feed URL for a source.
func DefaultURL(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[name]
}
