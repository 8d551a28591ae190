// Package fabricapi provides the Fabric API source, read from the Modrinth
// project version listing.
package fabricapi

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/cache"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"go.uber.org/zap"
)

const (
	DefaultURL = "https://api.modrinth.com/v2/project/fabric-api/version"
	Repository = "https://maven.fabricmc.net"
	name       = "fabric-api"
)

func init() {
	core.Register(name, DefaultURL, func(deps core.Deps) (core.Source, error) {
		return New(deps), nil
	})
}

// build is one published Fabric API version.
type build struct {
	Version      string
	GameVersions []string
	Stable       bool
	Published    time.Time
}

type Source struct {
	core.Base
	client *client.Client
	cache  *cache.Cache[[]build]
	urls   *URLs
}

func New(deps core.Deps) *Source {
	if deps.BaseURL == "" {
		deps.BaseURL = DefaultURL
	}
	if deps.Client == nil {
		deps.Client = client.DefaultClient()
	}
	return &Source{
		Base:   core.NewBase(name, deps),
		client: deps.Client,
		cache:  core.NewCache[[]build](deps),
		urls:   &URLs{maven: client.Maven{Repository: Repository, Group: "net.fabricmc.fabric-api", Artifact: "fabric-api"}},
	}
}

func (s *Source) URLs() client.URLBuilder {
	return s.urls
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
	return s.filter(ctx, includePrereleases, func(build) bool { return true })
}

func (s *Source) ListFor(ctx context.Context, base catalog.Version, includePrereleases bool) ([]core.Release, error) {
	return s.filter(ctx, includePrereleases, func(b build) bool {
		return slices.Contains(b.GameVersions, base.ID)
	})
}

func (s *Source) ForceRefresh(ctx context.Context, _ bool) error {
	return core.Refresh(ctx, s.Base, s.cache, core.AllKey, s.fetch)
}

func (s *Source) filter(ctx context.Context, includePrereleases bool, keep func(build) bool) ([]core.Release, error) {
	all, err := core.Load(ctx, s.Base, s.cache, core.AllKey, s.fetch)
	if err != nil {
		return nil, err
	}

	var out []core.Release
	for _, b := range all {
		if (includePrereleases || b.Stable) && keep(b) {
			out = append(out, core.Plain(b.Version))
		}
	}
	return out, nil
}

type versionResponse struct {
	VersionNumber string    `json:"version_number"`
	GameVersions  []string  `json:"game_versions"`
	VersionType   string    `json:"version_type"`
	DatePublished time.Time `json:"date_published"`
}

func (s *Source) fetch(ctx context.Context) ([]build, error) {
	var raw []json.RawMessage
	if err := s.client.GetJSON(ctx, s.Deps().BaseURL, &raw); err != nil {
		return nil, err
	}

	builds := make([]build, 0, len(raw))
	for i, item := range raw {
		var v versionResponse
		if err := json.Unmarshal(item, &v); err != nil || v.VersionNumber == "" {
			s.Logger().Warn("skipping malformed version entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		builds = append(builds, build{
			Version:      v.VersionNumber,
			GameVersions: v.GameVersions,
			Stable:       v.VersionType == "release",
			Published:    v.DatePublished,
		})
	}

	slices.SortStableFunc(builds, func(a, b build) int {
		return b.Published.Compare(a.Published)
	})
	return builds, nil
}

type URLs struct {
	maven client.Maven
}

func (u *URLs) Download(_, version string) string {
	return u.maven.Download(version)
}

func (u *URLs) Documentation(_, version string) string {
	if version == "" {
		return ""
	}
	return "https://modrinth.com/mod/fabric-api/version/" + version
}

func (u *URLs) PURL(_, version string) string {
	return u.maven.PURL(version)
}
