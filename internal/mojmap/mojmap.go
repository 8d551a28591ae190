// Package mojmap provides the official Mojang mappings source. Mappings
// ship with the game itself, so the releases are derived from the catalog
// rather than fetched from a feed of their own.
package mojmap

import (
	"context"
	"fmt"

	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"go.uber.org/zap"
)

const (
	name = "mojmap"
	// FirstVersion is the first release published with official mappings.
	FirstVersion = "1.14.4"
)

func init() {
	core.Register(name, "", func(deps core.Deps) (core.Source, error) {
		return New(deps), nil
	})
}

type Source struct {
	core.Base
	catalog   *catalog.Catalog
	documents core.DocumentStore
}

func New(deps core.Deps) *Source {
	return &Source{
		Base:      core.NewBase(name, deps),
		catalog:   deps.Catalog,
		documents: deps.Documents,
	}
}

// eligible reports whether v shipped with official mappings.
func (s *Source) eligible(v catalog.Version, includePrereleases bool) bool {
	if !v.IsRelease() && !(includePrereleases && v.Kind == catalog.Snapshot) {
		return false
	}
	first, ok := s.catalog.FromID(FirstVersion)
	if !ok {
		return true
	}
	return !v.ReleaseTime.Before(first.ReleaseTime)
}

func (s *Source) LatestFor(ctx context.Context, base catalog.Version, includePrereleases bool) (core.Release, bool, error) {
	rs, err := s.ListFor(ctx, base, includePrereleases)
	if err != nil {
		return nil, false, err
	}
	r, ok := core.First(rs)
	return r, ok, nil
}

// ListAll returns every eligible base version, newest first.
func (s *Source) ListAll(_ context.Context, includePrereleases bool) ([]core.Release, error) {
	versions := s.catalog.Versions()
	var out []core.Release
	for i := len(versions) - 1; i >= 0; i-- {
		if s.eligible(versions[i], includePrereleases) {
			out = append(out, core.Plain(versions[i].ID))
		}
	}
	return out, nil
}

func (s *Source) ListFor(_ context.Context, base catalog.Version, includePrereleases bool) ([]core.Release, error) {
	if _, known := s.catalog.FromID(base.ID); !known || !s.eligible(base, includePrereleases) {
		return nil, nil
	}
	return []core.Release{core.Plain(base.ID)}, nil
}

// ForceRefresh reloads the catalog the releases are derived from.
func (s *Source) ForceRefresh(ctx context.Context, _ bool) error {
	if err := s.catalog.Refresh(ctx); err != nil {
		s.Logger().Warn("catalog refresh failed", zap.Error(err))
	}
	return nil
}

// Locate returns the client mappings URL from the version's metadata
// document.
func (s *Source) Locate(ctx context.Context, base catalog.Version, version string) (string, error) {
	if version != base.ID {
		return "", &core.NotFoundError{Upstream: name, BaseVersion: base.ID, Version: version}
	}
	if s.documents == nil {
		return "", fmt.Errorf("%s: %w: document store", name, core.ErrMissingDependency)
	}

	doc, err := s.documents.Document(ctx, base)
	if err != nil {
		return "", err
	}
	downloads, _ := doc["downloads"].(map[string]any)
	mappings, _ := downloads["client_mappings"].(map[string]any)
	url, _ := mappings["url"].(string)
	if url == "" {
		return "", &core.NotFoundError{Upstream: name, BaseVersion: base.ID, Version: version}
	}
	return url, nil
}
