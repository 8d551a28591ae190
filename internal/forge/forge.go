// Package forge provides the Forge patch distribution source.
package forge

import (
	"context"
	"slices"
	"strings"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/cache"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/maven"
	"github.com/git-pkgs/switchboard/internal/versions"
)

const (
	DefaultURL = "https://maven.minecraftforge.net/net/minecraftforge/forge/maven-metadata.xml"
	// DefaultPromotionsURL lists the recommended and latest build per base version.
	DefaultPromotionsURL = "https://files.minecraftforge.net/net/minecraftforge/forge/promotions_slim.json"
	Repository           = "https://maven.minecraftforge.net"
	name                 = "forge"
	promotionsKey        = "promotions"
)

func init() {
	core.Register(name, DefaultURL, func(deps core.Deps) (core.Source, error) {
		return New(deps), nil
	})
}

// Source resolves Forge builds ("1.20.1-47.2.0") from maven metadata.
type Source struct {
	core.Base
	catalog       *catalog.Catalog
	client        *client.Client
	promotionsURL string
	builds        *cache.Cache[[]string]
	promotions    *cache.Cache[map[string]string]
	urls          *URLs
}

// Option configures a Source.
type Option func(*Source)

// WithPromotionsURL overrides the promotions document location.
func WithPromotionsURL(url string) Option {
	return func(s *Source) {
		s.promotionsURL = url
	}
}

func New(deps core.Deps, opts ...Option) *Source {
	if deps.BaseURL == "" {
		deps.BaseURL = DefaultURL
	}
	if deps.Client == nil {
		deps.Client = client.DefaultClient()
	}
	s := &Source{
		Base:          core.NewBase(name, deps),
		catalog:       deps.Catalog,
		client:        deps.Client,
		promotionsURL: DefaultPromotionsURL,
		builds:        core.NewCache[[]string](deps),
		promotions:    core.NewCache[map[string]string](deps),
		urls:          &URLs{maven: client.Maven{Repository: Repository, Group: "net.minecraftforge", Artifact: "forge", Classifier: "installer"}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) URLs() client.URLBuilder {
	return s.urls
}

// Compare orders two Forge builds, using the catalog for base release times.
func (s *Source) Compare(a, b string) int {
	if s.catalog == nil {
		return versions.CompareBuilds(a, b, nil)
	}
	return versions.CompareBuilds(a, b, s.catalog)
}

func (s *Source) LatestFor(ctx context.Context, base catalog.Version, includePrereleases bool) (core.Release, bool, error) {
	rs, err := s.ListFor(ctx, base, includePrereleases)
	if err != nil {
		return nil, false, err
	}
	r, ok := core.First(rs)
	return r, ok, nil
}

// ListAll returns every build, newest first. Forge has no prerelease
// designation so includePrereleases is ignored.
func (s *Source) ListAll(ctx context.Context, _ bool) ([]core.Release, error) {
	all, err := s.versions(ctx)
	if err != nil {
		return nil, err
	}
	return core.Plains(all), nil
}

func (s *Source) ListFor(ctx context.Context, base catalog.Version, _ bool) ([]core.Release, error) {
	all, err := s.versions(ctx)
	if err != nil {
		return nil, err
	}

	var out []core.Release
	for _, v := range all {
		if b, ok := versions.BaseOf(v); ok && b == base.ID {
			out = append(out, core.Plain(v))
		}
	}
	return out, nil
}

func (s *Source) ForceRefresh(ctx context.Context, _ bool) error {
	if err := core.Refresh(ctx, s.Base, s.builds, core.AllKey, s.fetchVersions); err != nil {
		return err
	}
	return core.Refresh(ctx, s.Base, s.promotions, promotionsKey, s.fetchPromotions)
}

// RecommendedFor returns the build promoted as recommended for base.
func (s *Source) RecommendedFor(ctx context.Context, base catalog.Version) (core.Release, bool, error) {
	promos, err := core.Load(ctx, s.Base, s.promotions, promotionsKey, s.fetchPromotions)
	if err != nil {
		return nil, false, err
	}
	build := strings.TrimSpace(promos[base.ID+"-recommended"])
	if build == "" {
		return nil, false, nil
	}
	// promotions carry only the build number
	return core.Plain(base.ID + "-" + build), true, nil
}

// IsRecommended reports whether version is the recommended build for base.
func (s *Source) IsRecommended(ctx context.Context, base catalog.Version, version string) (bool, error) {
	if b, ok := versions.BaseOf(version); !ok || b != base.ID {
		return false, nil
	}
	r, ok, err := s.RecommendedFor(ctx, base)
	if err != nil || !ok {
		return false, err
	}
	return r.ID() == version, nil
}

func (s *Source) versions(ctx context.Context) ([]string, error) {
	return core.Load(ctx, s.Base, s.builds, core.AllKey, s.fetchVersions)
}

func (s *Source) fetchVersions(ctx context.Context) ([]string, error) {
	vs, err := maven.Versions(ctx, s.client, s.Deps().BaseURL)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(vs, func(a, b string) int {
		return s.Compare(b, a)
	})
	return vs, nil
}

type promotionsResponse struct {
	Homepage string            `json:"homepage"`
	Promos   map[string]string `json:"promos"`
}

func (s *Source) fetchPromotions(ctx context.Context) (map[string]string, error) {
	var resp promotionsResponse
	if err := s.client.GetJSON(ctx, s.promotionsURL, &resp); err != nil {
		return nil, err
	}
	if resp.Promos == nil {
		resp.Promos = map[string]string{}
	}
	return resp.Promos, nil
}

// URLs builds artifact locations for Forge installers.
type URLs struct {
	maven client.Maven
}

func (u *URLs) Download(_, version string) string {
	return u.maven.Download(version)
}

func (u *URLs) Documentation(_, version string) string {
	base, ok := versions.BaseOf(version)
	if !ok {
		return ""
	}
	return "https://files.minecraftforge.net/net/minecraftforge/forge/index_" + base + ".html"
}

func (u *URLs) PURL(_, version string) string {
	return u.maven.PURL(version)
}
