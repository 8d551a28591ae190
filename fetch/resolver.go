package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
)

var ErrNoDownloadURL = errors.New("no download URL available")

// ArtifactInfo locates a downloadable companion release.
type ArtifactInfo struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	PURL        string `json:"purl,omitempty"`
	Docs        string `json:"docs,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Resolver determines download locations for releases of registered
// sources.
type Resolver struct {
	sources map[string]core.Source
	verify  ArtifactFetcher
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithVerifier makes Resolve confirm each location with a HEAD request
// and record its size and content type.
func WithVerifier(f ArtifactFetcher) ResolverOption {
	return func(r *Resolver) {
		r.verify = f
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{sources: make(map[string]core.Source)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds src under its name.
func (r *Resolver) Register(src core.Source) {
	r.sources[src.Name()] = src
}

// Resolve returns the location of version for base from the named source.
// The release must be known to the source.
func (r *Resolver) Resolve(ctx context.Context, name string, base catalog.Version, version string) (*ArtifactInfo, error) {
	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownSource, name)
	}

	rel, ok, err := core.Lookup(ctx, src, base, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &client.NotFoundError{Upstream: name, BaseVersion: base.ID, Version: version}
	}

	info, err := locate(ctx, src, base, rel.ID())
	if err != nil {
		return nil, err
	}

	if r.verify != nil {
		size, contentType, err := r.verify.Head(ctx, info.URL)
		if err != nil {
			return nil, fmt.Errorf("verifying %s: %w", info.URL, err)
		}
		info.Size = size
		info.ContentType = contentType
	}
	return info, nil
}

func locate(ctx context.Context, src core.Source, base catalog.Version, version string) (*ArtifactInfo, error) {
	if p, ok := src.(core.URLProvider); ok {
		urls := p.URLs()
		if u := urls.Download(base.ID, version); u != "" {
			return &ArtifactInfo{
				URL:      u,
				Filename: filenameFromURL(u),
				PURL:     urls.PURL(base.ID, version),
				Docs:     urls.Documentation(base.ID, version),
			}, nil
		}
	}

	if l, ok := src.(core.ArtifactLocator); ok {
		u, err := l.Locate(ctx, base, version)
		if err != nil {
			return nil, err
		}
		return &ArtifactInfo{URL: u, Filename: filenameFromURL(u)}, nil
	}

	return nil, fmt.Errorf("%s %s: %w", src.Name(), version, ErrNoDownloadURL)
}

func filenameFromURL(u string) string {
	u, _, _ = strings.Cut(u, "?")
	if idx := strings.LastIndex(u, "/"); idx >= 0 {
		return u[idx+1:]
	}
	return u
}
