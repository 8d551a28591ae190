// Package mcp provides the MCP mappings source, read from mcp_config
// builds such as "1.16.5-20210115.111550".
package mcp

import (
	"context"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/cache"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/maven"
	"github.com/git-pkgs/switchboard/internal/versions"
)

const (
	DefaultURL = "https://maven.minecraftforge.net/de/oceanlabs/mcp/mcp_config/maven-metadata.xml"
	Repository = "https://maven.minecraftforge.net"
	name       = "mcp"
)

func init() {
	core.Register(name, DefaultURL, func(deps core.Deps) (core.Source, error) {
		return New(deps), nil
	})
}

type Source struct {
	core.Base
	client  *client.Client
	catalog *catalog.Catalog
	cache   *cache.Cache[[]string]
	urls    *URLs
}

func New(deps core.Deps) *Source {
	if deps.BaseURL == "" {
		deps.BaseURL = DefaultURL
	}
	if deps.Client == nil {
		deps.Client = client.DefaultClient()
	}
	return &Source{
		Base:    core.NewBase(name, deps),
		client:  deps.Client,
		catalog: deps.Catalog,
		cache:   core.NewCache[[]string](deps),
		urls: &URLs{maven: client.Maven{
			Repository: Repository,
			Group:      "de.oceanlabs.mcp",
			Artifact:   "mcp_config",
			Extension:  "zip",
		}},
	}
}

func (s *Source) URLs() client.URLBuilder {
	return s.urls
}

// BaseVersion returns the base version an mcp_config build targets.
// Builds without a timestamp suffix target their whole identifier.
func BaseVersion(version string) string {
	if base, ok := versions.BaseOf(version); ok {
		return base
	}
	return version
}

func (s *Source) LatestFor(ctx context.Context, base catalog.Version, includePrereleases bool) (core.Release, bool, error) {
	rs, err := s.ListFor(ctx, base, includePrereleases)
	if err != nil {
		return nil, false, err
	}
	r, ok := core.First(rs)
	return r, ok, nil
}

func (s *Source) ListAll(ctx context.Context, includePrereleases bool) ([]core.Release, error) {
	all, err := s.versions(ctx)
	if err != nil {
		return nil, err
	}

	var out []core.Release
	for _, v := range all {
		if !includePrereleases {
			base, ok := s.catalog.FromID(BaseVersion(v))
			if !ok || !base.IsRelease() {
				continue
			}
		}
		out = append(out, core.Plain(v))
	}
	return out, nil
}

func (s *Source) ListFor(ctx context.Context, base catalog.Version, includePrereleases bool) ([]core.Release, error) {
	if !includePrereleases && !base.IsRelease() {
		return nil, nil
	}
	all, err := s.versions(ctx)
	if err != nil {
		return nil, err
	}

	var out []core.Release
	for _, v := range all {
		if BaseVersion(v) == base.ID {
			out = append(out, core.Plain(v))
		}
	}
	return out, nil
}

func (s *Source) ForceRefresh(ctx context.Context, _ bool) error {
	return core.Refresh(ctx, s.Base, s.cache, core.AllKey, s.fetch)
}

func (s *Source) versions(ctx context.Context) ([]string, error) {
	return core.Load(ctx, s.Base, s.cache, core.AllKey, s.fetch)
}

func (s *Source) fetch(ctx context.Context) ([]string, error) {
	return maven.Newest(ctx, s.client, s.Deps().BaseURL)
}

type URLs struct {
	maven client.Maven
}

func (u *URLs) Download(_, version string) string {
	return u.maven.Download(version)
}

func (u *URLs) Documentation(_, _ string) string {
	return ""
}

func (u *URLs) PURL(_, version string) string {
	return u.maven.PURL(version)
}
