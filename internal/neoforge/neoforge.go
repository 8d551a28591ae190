// Package neoforge provides the NeoForge patch distribution source.
//
// NeoForge versions drop the leading "1." of the base version they target:
// "21.1.72" is built for 1.21.1 and "20.4.80-beta" for 1.20.4. A ".0" minor
// maps to the bare major release, so "21.0.167" targets 1.21.
package neoforge

import (
	"context"
	"strings"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/cache"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/maven"
)

const (
	DefaultURL = "https://maven.neoforged.net/releases/net/neoforged/neoforge/maven-metadata.xml"
	Repository = "https://maven.neoforged.net/releases"
	name       = "neoforge"
)

func init() {
	core.Register(name, DefaultURL, func(deps core.Deps) (core.Source, error) {
		return New(deps), nil
	})
}

type Source struct {
	core.Base
	client *client.Client
	cache  *cache.Cache[[]string]
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
		cache:  core.NewCache[[]string](deps),
		urls:   &URLs{maven: client.Maven{Repository: Repository, Group: "net.neoforged", Artifact: "neoforge", Classifier: "installer"}},
	}
}

func (s *Source) URLs() client.URLBuilder {
	return s.urls
}

// BaseVersion derives the base version a NeoForge version targets.
func BaseVersion(version string) (string, bool) {
	head, _, _ := strings.Cut(version, "-")
	parts := strings.Split(head, ".")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	if parts[1] == "0" {
		return "1." + parts[0], true
	}
	return "1." + parts[0] + "." + parts[1], true
}

// IsPrerelease reports whether version carries a beta or alpha suffix.
func IsPrerelease(version string) bool {
	return strings.Contains(version, "-beta") || strings.Contains(version, "-alpha")
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
	return s.filter(ctx, includePrereleases, func(string) bool { return true })
}

func (s *Source) ListFor(ctx context.Context, base catalog.Version, includePrereleases bool) ([]core.Release, error) {
	return s.filter(ctx, includePrereleases, func(v string) bool {
		b, ok := BaseVersion(v)
		return ok && b == base.ID
	})
}

func (s *Source) ForceRefresh(ctx context.Context, _ bool) error {
	return core.Refresh(ctx, s.Base, s.cache, core.AllKey, s.fetch)
}

func (s *Source) filter(ctx context.Context, includePrereleases bool, keep func(string) bool) ([]core.Release, error) {
	all, err := core.Load(ctx, s.Base, s.cache, core.AllKey, s.fetch)
	if err != nil {
		return nil, err
	}

	var out []core.Release
	for _, v := range all {
		if !includePrereleases && IsPrerelease(v) {
			continue
		}
		if keep(v) {
			out = append(out, core.Plain(v))
		}
	}
	return out, nil
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
	return "https://projects.neoforged.net/neoforged/neoforge"
}

func (u *URLs) PURL(_, version string) string {
	return u.maven.PURL(version)
}
