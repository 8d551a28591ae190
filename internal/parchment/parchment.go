// Package parchment provides the Parchment mappings source. Releases are
// harvested from the tags of the Parchment git repository.
package parchment

import (
	"context"
	"os"
	"path/filepath"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/cache"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/versions"
	"go.uber.org/zap"
)

const (
	DefaultURL = "https://github.com/ParchmentMC/Parchment.git"
	Repository = "https://maven.parchmentmc.org"
	name       = "parchment"
)

func init() {
	core.Register(name, DefaultURL, func(deps core.Deps) (core.Source, error) {
		return New(deps), nil
	})
}

type Source struct {
	core.Base
	tags  TagLister
	cache *cache.Cache[[]core.TaggedRelease]
}

// Option configures a Source.
type Option func(*Source)

// WithTagLister replaces the git clone used to enumerate tags.
func WithTagLister(l TagLister) Option {
	return func(s *Source) {
		s.tags = l
	}
}

func New(deps core.Deps, opts ...Option) *Source {
	if deps.BaseURL == "" {
		deps.BaseURL = DefaultURL
	}
	workDir := deps.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "switchboard")
	}

	s := &Source{
		Base:  core.NewBase(name, deps),
		tags:  &Cloner{URL: deps.BaseURL, Dir: filepath.Join(workDir, "parchment")},
		cache: core.NewCache[[]core.TaggedRelease](deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) URLs() client.URLBuilder {
	return URLs{}
}

func (s *Source) LatestFor(ctx context.Context, base catalog.Version, includePrereleases bool) (core.Release, bool, error) {
	rs, err := s.ListFor(ctx, base, includePrereleases)
	if err != nil {
		return nil, false, err
	}
	r, ok := core.First(rs)
	return r, ok, nil
}

// ListAll returns every release, newest first. Parchment publishes only
// stable releases so includePrereleases has no effect.
func (s *Source) ListAll(ctx context.Context, _ bool) ([]core.Release, error) {
	all, err := s.releases(ctx)
	if err != nil {
		return nil, err
	}
	return wrap(all), nil
}

func (s *Source) ListFor(ctx context.Context, base catalog.Version, _ bool) ([]core.Release, error) {
	all, err := s.releases(ctx)
	if err != nil {
		return nil, err
	}

	var out []core.Release
	for _, r := range all {
		if r.BaseVersion == base.ID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Grouped returns the releases keyed by base version, each list newest
// first.
func (s *Source) Grouped(ctx context.Context, _ bool) (map[string][]core.Release, error) {
	all, err := s.releases(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]core.Release)
	for _, r := range all {
		grouped[r.BaseVersion] = append(grouped[r.BaseVersion], r)
	}
	return grouped, nil
}

func (s *Source) ForceRefresh(ctx context.Context, _ bool) error {
	return core.Refresh(ctx, s.Base, s.cache, core.AllKey, s.harvest)
}

func (s *Source) releases(ctx context.Context) ([]core.TaggedRelease, error) {
	return core.Load(ctx, s.Base, s.cache, core.AllKey, s.harvest)
}

type harvestResult struct {
	releases []core.TaggedRelease
	err      error
}

// harvest lists the tags on a separate goroutine. A caller that goes away
// stops waiting, but the clone runs to completion and a successful result
// is cached for the next caller.
func (s *Source) harvest(ctx context.Context) ([]core.TaggedRelease, error) {
	done := make(chan harvestResult)
	go func() {
		rs, err := s.collect(context.WithoutCancel(ctx))
		select {
		case done <- harvestResult{rs, err}:
		case <-ctx.Done():
			if err != nil {
				s.Logger().Warn("abandoned harvest failed", zap.Error(err))
				return
			}
			s.cache.Set(core.AllKey, rs)
		}
	}()

	select {
	case res := <-done:
		return res.releases, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Source) collect(ctx context.Context) ([]core.TaggedRelease, error) {
	names, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	releases := make([]core.TaggedRelease, 0, len(names))
	for _, ref := range names {
		r, ok := ParseTag(ref)
		if !ok {
			s.Logger().Warn("skipping invalid tag", zap.String("tag", ref))
			continue
		}
		releases = append(releases, r)
	}

	if err := versions.SortDates(releases, func(r core.TaggedRelease) string { return r.Version }, true); err != nil {
		return nil, err
	}
	return releases, nil
}

func wrap(rs []core.TaggedRelease) []core.Release {
	out := make([]core.Release, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

// URLs builds artifact locations. Parchment publishes one artifact per
// base version, so the base is part of the coordinate.
type URLs struct{}

func (URLs) maven(baseVersion string) client.Maven {
	return client.Maven{Repository: Repository, Group: "org.parchmentmc.data", Artifact: "parchment-" + baseVersion, Extension: "zip"}
}

func (u URLs) Download(baseVersion, version string) string {
	if baseVersion == "" {
		return ""
	}
	return u.maven(baseVersion).Download(version)
}

func (URLs) Documentation(_, _ string) string {
	return "https://parchmentmc.org/docs/getting-started"
}

func (u URLs) PURL(baseVersion, version string) string {
	if baseVersion == "" {
		return ""
	}
	return u.maven(baseVersion).PURL(version)
}
