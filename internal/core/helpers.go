package core

import (
	"context"
	"fmt"

	"github.com/git-pkgs/switchboard/internal/catalog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Latest returns the newest release src knows of, across every base
// version.
func Latest(ctx context.Context, src Source, includePrereleases bool) (Release, bool, error) {
	rs, err := src.ListAll(ctx, includePrereleases)
	if err != nil {
		return nil, false, err
	}
	r, ok := First(rs)
	return r, ok, nil
}

// Exists reports whether src has at least one release for base.
func Exists(ctx context.Context, src Source, base catalog.Version, includePrereleases bool) (bool, error) {
	rs, err := src.ListFor(ctx, base, includePrereleases)
	if err != nil {
		return false, err
	}
	return len(rs) > 0, nil
}

// Lookup finds version among the releases src has for base, using the
// source's own Finder when it has one.
func Lookup(ctx context.Context, src Source, base catalog.Version, version string) (Release, bool, error) {
	if f, ok := src.(Finder); ok {
		return f.FindVersion(ctx, base, version)
	}
	rs, err := src.ListFor(ctx, base, true)
	if err != nil {
		return nil, false, err
	}
	r, ok := Find(rs, version)
	return r, ok, nil
}

// First returns the first element of rs.
func First(rs []Release) (Release, bool) {
	if len(rs) == 0 {
		return nil, false
	}
	return rs[0], true
}

// RefreshAll force-refreshes every source concurrently. The first
// configuration error is returned after all refreshes finish.
func RefreshAll(ctx context.Context, sources []Source, includePrereleases bool) error {
	return RefreshAllWithConcurrency(ctx, sources, includePrereleases, defaultConcurrency)
}

// RefreshAllWithConcurrency is RefreshAll with a custom concurrency limit.
func RefreshAllWithConcurrency(ctx context.Context, sources []Source, includePrereleases bool, concurrency int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, src := range sources {
		g.Go(func() error {
			if err := src.ForceRefresh(ctx, includePrereleases); err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
