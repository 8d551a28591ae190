// Package fabricloader provides the Fabric Loader source, backed by the
// Fabric meta service.
package fabricloader

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/cache"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"go.uber.org/zap"
)

const (
	DefaultURL = "https://meta.fabricmc.net"
	Repository = "https://maven.fabricmc.net"
	name       = "fabric-loader"
)

func init() {
	core.Register(name, DefaultURL, func(deps core.Deps) (core.Source, error) {
		return New(deps), nil
	})
}

// Source lists loader builds. Builds are listed per base version by the
// meta service itself, so the cache holds one entry per base version
// plus the unscoped listing.
type Source struct {
	core.Base
	client *client.Client
	cache  *cache.Cache[[]core.LoaderBuild]
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
		cache:  core.NewCache[[]core.LoaderBuild](deps),
		urls:   &URLs{maven: client.Maven{Repository: Repository, Group: "net.fabricmc", Artifact: "fabric-loader"}},
	}
}

func (s *Source) URLs() client.URLBuilder {
	return s.urls
}

// LatestFor returns the newest stable build for base, or the newest build
// of any kind when prereleases are requested or none is marked stable.
func (s *Source) LatestFor(ctx context.Context, base catalog.Version, includePrereleases bool) (core.Release, bool, error) {
	rs, err := s.ListFor(ctx, base, true)
	if err != nil || len(rs) == 0 {
		return nil, false, err
	}
	if !includePrereleases {
		for _, r := range rs {
			if b, ok := r.(core.LoaderBuild); ok && b.Stable {
				return b, true, nil
			}
		}
	}
	return rs[0], true, nil
}

// ListAll returns every loader build in feed order, newest first. The
// stable flag only affects LatestFor.
func (s *Source) ListAll(ctx context.Context, _ bool) ([]core.Release, error) {
	builds, err := core.Load(ctx, s.Base, s.cache, core.AllKey, s.fetchAll)
	if err != nil {
		return nil, err
	}
	return releases(builds), nil
}

func (s *Source) ListFor(ctx context.Context, base catalog.Version, _ bool) ([]core.Release, error) {
	builds, err := core.Load(ctx, s.Base, s.cache, core.ScopedKey(name, base.ID), s.fetchFor(base.ID))
	if err != nil {
		return nil, err
	}
	return releases(builds), nil
}

// ForceRefresh reloads the unscoped listing and every base version that
// has been asked for so far.
func (s *Source) ForceRefresh(ctx context.Context, _ bool) error {
	if err := core.Refresh(ctx, s.Base, s.cache, core.AllKey, s.fetchAll); err != nil {
		return err
	}
	prefix := name + ":"
	for _, key := range s.cache.Keys() {
		baseID, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		if err := core.Refresh(ctx, s.Base, s.cache, key, s.fetchFor(baseID)); err != nil {
			return err
		}
	}
	return nil
}

// FindVersion looks version up in the listing for base and falls back to
// asking the meta service for that single build.
func (s *Source) FindVersion(ctx context.Context, base catalog.Version, version string) (core.Release, bool, error) {
	if version == "" {
		return nil, false, nil
	}
	rs, err := s.ListFor(ctx, base, true)
	if err != nil {
		return nil, false, err
	}
	if r, ok := core.Find(rs, version); ok {
		return r, true, nil
	}

	endpoint := s.Deps().BaseURL + "/v2/versions/loader/" + url.PathEscape(base.ID) + "/" + url.PathEscape(version)
	body, err := s.client.GetBody(ctx, endpoint)
	if err != nil {
		if !core.IsNotFound(err) {
			s.Logger().Warn("single build lookup failed",
				zap.String("base", base.ID), zap.String("version", version), zap.Error(err))
		}
		return nil, false, nil
	}

	b, ok := parseBuild(body)
	if !ok {
		s.Logger().Warn("malformed single build response", zap.String("version", version))
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Source) fetchAll(ctx context.Context) ([]core.LoaderBuild, error) {
	return s.fetchBuilds(ctx, s.Deps().BaseURL+"/v2/versions/loader")
}

func (s *Source) fetchFor(baseID string) func(context.Context) ([]core.LoaderBuild, error) {
	return func(ctx context.Context) ([]core.LoaderBuild, error) {
		return s.fetchBuilds(ctx, s.Deps().BaseURL+"/v2/versions/loader/"+url.PathEscape(baseID))
	}
}

func (s *Source) fetchBuilds(ctx context.Context, endpoint string) ([]core.LoaderBuild, error) {
	var raw []json.RawMessage
	if err := s.client.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	builds := make([]core.LoaderBuild, 0, len(raw))
	for i, item := range raw {
		b, ok := parseBuild(item)
		if !ok {
			s.Logger().Warn("skipping malformed loader entry", zap.Int("index", i))
			continue
		}
		builds = append(builds, b)
	}
	return builds, nil
}

// parseBuild decodes a loader record, either bare or wrapped in a
// {"loader": ...} object as the per-base endpoints return it.
func parseBuild(raw json.RawMessage) (core.LoaderBuild, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return core.LoaderBuild{}, false
	}
	if inner, ok := obj["loader"]; ok {
		raw = inner
	}

	var b core.LoaderBuild
	if err := json.Unmarshal(raw, &b); err != nil || b.Version == "" {
		return core.LoaderBuild{}, false
	}
	return b, true
}

func releases(builds []core.LoaderBuild) []core.Release {
	out := make([]core.Release, len(builds))
	for i, b := range builds {
		out[i] = b
	}
	return out
}

type URLs struct {
	maven client.Maven
}

func (u *URLs) Download(_, version string) string {
	return u.maven.Download(version)
}

func (u *URLs) Documentation(_, _ string) string {
	return "https://fabricmc.net/wiki/documentation:fabric_loader"
}

func (u *URLs) PURL(_, version string) string {
	return u.maven.PURL(version)
}
