package core

import (
	"context"
	"strings"

	"github.com/git-pkgs/switchboard/internal/cache"
	"go.uber.org/zap"
)

// AllKey is the cache key for unscoped listings.
const AllKey = "all"

// ScopedKey is the cache key for a listing scoped to one base version.
func ScopedKey(name, baseID string) string {
	return name + ":" + baseID
}

// Observer receives fetch and cache events from sources.
type Observer interface {
	ObserveFetch(source string, err error)
	ObserveCache(source string, hit bool)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) ObserveFetch(string, error) {}
func (NopObserver) ObserveCache(string, bool)  {}

// Base carries what every source shares and applies the stale fallback
// policy through Load.
type Base struct {
	name    string
	deps    Deps
	log     *zap.Logger
	metrics Observer
}

// NewBase prepares the shared part of a source called name.
func NewBase(name string, deps Deps) Base {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopObserver{}
	}
	deps.BaseURL = strings.TrimSuffix(deps.BaseURL, "/")
	return Base{
		name:    name,
		deps:    deps,
		log:     log.With(zap.String("source", name)),
		metrics: metrics,
	}
}

func (b Base) Name() string { return b.name }

// Deps returns the dependencies the source was built with.
func (b Base) Deps() Deps { return b.deps }

// Logger returns a logger tagged with the source name.
func (b Base) Logger() *zap.Logger { return b.log }

// NewCache builds a cache using the configured TTL and options.
func NewCache[V any](deps Deps) *cache.Cache[V] {
	return cache.New[V](deps.TTL, deps.CacheOptions...)
}

// Load returns the active cached value for key, or fetches a fresh one.
// A failed fetch is logged and answered with the stale entry if one
// exists, else with the zero value. Configuration errors are returned.
func Load[V any](ctx context.Context, b Base, c *cache.Cache[V], key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		b.metrics.ObserveCache(b.name, true)
		return v, nil
	}
	b.metrics.ObserveCache(b.name, false)

	v, err := fetch(ctx)
	b.metrics.ObserveFetch(b.name, err)
	if err == nil {
		c.Set(key, v)
		return v, nil
	}

	var zero V
	if IsConfiguration(err) {
		return zero, err
	}

	if entry, ok := c.Peek(key); ok {
		b.log.Warn("fetch failed, serving stale data",
			zap.String("key", key), zap.Bool("stale", true), zap.Error(err))
		return entry.Value, nil
	}
	b.log.Warn("fetch failed", zap.String("key", key), zap.Error(err))
	return zero, nil
}

// Refresh fetches key unconditionally and replaces its entry. A failed
// fetch keeps the previous entry and is only logged, except for
// configuration errors which are returned.
func Refresh[V any](ctx context.Context, b Base, c *cache.Cache[V], key string, fetch func(context.Context) (V, error)) error {
	v, err := fetch(ctx)
	b.metrics.ObserveFetch(b.name, err)
	if err == nil {
		c.Set(key, v)
		return nil
	}
	if IsConfiguration(err) {
		return err
	}
	b.log.Warn("refresh failed, keeping cached data", zap.String("key", key), zap.Error(err))
	return nil
}
