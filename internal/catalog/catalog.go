package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/git-pkgs/switchboard/client"
	"go.uber.org/zap"
)

// snapshot is one immutable view of the manifest. Readers always see a
// whole snapshot; Refresh swaps the pointer.
type snapshot struct {
	versions       []Version // ascending release time
	index          map[string]int
	latestRelease  int // -1 when absent
	latestSnapshot int
}

func newSnapshot(versions []Version, latestRelease, latestSnapshot string) *snapshot {
	s := &snapshot{
		versions:       versions,
		index:          make(map[string]int, len(versions)),
		latestRelease:  -1,
		latestSnapshot: -1,
	}
	for i, v := range versions {
		s.index[v.ID] = i
	}
	if i, ok := s.index[latestRelease]; ok {
		s.latestRelease = i
	}
	if i, ok := s.index[latestSnapshot]; ok {
		s.latestSnapshot = i
	}
	return s
}

func (s *snapshot) at(i int) (Version, bool) {
	if i < 0 || i >= len(s.versions) {
		return Version{}, false
	}
	return s.versions[i], true
}

// Catalog owns the base version list and its latest pointers.
type Catalog struct {
	client      *client.Client
	manifestURL string
	log         *zap.Logger
	current     atomic.Pointer[snapshot]
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithManifestURL overrides the manifest location.
func WithManifestURL(url string) Option {
	return func(c *Catalog) {
		c.manifestURL = url
	}
}

// WithLogger sets the logger used for manifest warnings.
func WithLogger(log *zap.Logger) Option {
	return func(c *Catalog) {
		c.log = log
	}
}

// New creates an empty catalog. Call Refresh to populate it.
func New(c *client.Client, opts ...Option) *Catalog {
	cat := &Catalog{
		client:      c,
		manifestURL: DefaultManifestURL,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cat)
	}
	cat.current.Store(newSnapshot(nil, "", ""))
	return cat
}

// Refresh fetches the manifest and replaces the catalog wholesale. On
// failure the previous contents stay in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("catalog: no http client configured")
	}

	body, err := c.client.GetBody(ctx, c.manifestURL)
	if err != nil {
		return fmt.Errorf("fetching manifest: %w", err)
	}

	s, err := parseManifest(body, c.log)
	if err != nil {
		return err
	}
	c.current.Store(s)

	c.log.Info("catalog refreshed",
		zap.Int("versions", len(s.versions)),
		zap.String("latest_release", idAt(s, s.latestRelease)),
		zap.String("latest_snapshot", idAt(s, s.latestSnapshot)))
	return nil
}

func idAt(s *snapshot, i int) string {
	v, _ := s.at(i)
	return v.ID
}

// Replace swaps in versions directly, sorted by release time. latestRelease
// and latestSnapshot are matched by identifier.
func (c *Catalog) Replace(versions []Version, latestRelease, latestSnapshot string) {
	sorted := slices.Clone(versions)
	slices.SortStableFunc(sorted, Version.Compare)
	c.current.Store(newSnapshot(sorted, latestRelease, latestSnapshot))
}

// Len returns the number of known versions.
func (c *Catalog) Len() int {
	return len(c.current.Load().versions)
}

// Versions returns every version in ascending release order.
func (c *Catalog) Versions() []Version {
	return slices.Clone(c.current.Load().versions)
}

// FromID looks up a version by identifier.
func (c *Catalog) FromID(id string) (Version, bool) {
	s := c.current.Load()
	i, ok := s.index[id]
	if !ok {
		return Version{}, false
	}
	return s.versions[i], true
}

// ReleaseTime returns the release time of the version with the given id.
func (c *Catalog) ReleaseTime(id string) (time.Time, bool) {
	v, ok := c.FromID(id)
	return v.ReleaseTime, ok
}

// Previous returns the next-older version.
func (c *Catalog) Previous(v Version) (Version, bool) {
	s := c.current.Load()
	i, ok := s.index[v.ID]
	if !ok {
		return Version{}, false
	}
	return s.at(i - 1)
}

// Next returns the next-newer version.
func (c *Catalog) Next(v Version) (Version, bool) {
	s := c.current.Load()
	i, ok := s.index[v.ID]
	if !ok {
		return Version{}, false
	}
	return s.at(i + 1)
}

// After returns the versions released after v in ascending order, starting
// with v itself when inclusive is set.
func (c *Catalog) After(v Version, inclusive bool) []Version {
	s := c.current.Load()
	i, ok := s.index[v.ID]
	if !ok {
		return nil
	}
	if !inclusive {
		i++
	}
	return slices.Clone(s.versions[i:])
}

// LatestRelease returns the manifest's latest stable release.
func (c *Catalog) LatestRelease() (Version, bool) {
	s := c.current.Load()
	return s.at(s.latestRelease)
}

// LatestSnapshot returns the manifest's latest snapshot.
func (c *Catalog) LatestSnapshot() (Version, bool) {
	s := c.current.Load()
	return s.at(s.latestSnapshot)
}

// Latest returns whichever of the latest release and latest snapshot was
// released most recently.
func (c *Catalog) Latest() (Version, bool) {
	s := c.current.Load()
	release, hasRelease := s.at(s.latestRelease)
	snap, hasSnap := s.at(s.latestSnapshot)

	switch {
	case hasRelease && hasSnap:
		if release.ReleaseTime.After(snap.ReleaseTime) {
			return release, true
		}
		return snap, true
	case hasRelease:
		return release, true
	case hasSnap:
		return snap, true
	}
	return Version{}, false
}

// LatestOf returns the newest version of the given kind. Release and
// snapshot use the manifest pointers; legacy kinds scan from the newest end.
func (c *Catalog) LatestOf(kind Kind) (Version, bool) {
	s := c.current.Load()
	switch kind {
	case Release:
		return s.at(s.latestRelease)
	case Snapshot:
		return s.at(s.latestSnapshot)
	}

	for i := len(s.versions) - 1; i >= 0; i-- {
		if s.versions[i].Kind == kind {
			return s.versions[i], true
		}
	}
	return Version{}, false
}

// IsLatest reports whether v is the latest release or latest snapshot.
func (c *Catalog) IsLatest(v Version) bool {
	if r, ok := c.LatestRelease(); ok && r.ID == v.ID {
		return true
	}
	if s, ok := c.LatestSnapshot(); ok && s.ID == v.ID {
		return true
	}
	return false
}

// NearestRelease returns v when it is a release. Otherwise it looks for the
// closest release among newer versions first, then among older ones.
func (c *Catalog) NearestRelease(v Version) (Version, bool) {
	if v.IsRelease() {
		return v, true
	}

	s := c.current.Load()
	idx, ok := s.index[v.ID]
	if !ok {
		return Version{}, false
	}

	for i := idx + 1; i < len(s.versions); i++ {
		if s.versions[i].IsRelease() {
			return s.versions[i], true
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if s.versions[i].IsRelease() {
			return s.versions[i], true
		}
	}
	return Version{}, false
}

// MajorVersion returns the "major" label of v: the first two dot-separated
// components of its nearest release, e.g. "1.21" for "1.21.8" or for a
// 1.21 snapshot. Versions without a usable release fall back to their id.
func (c *Catalog) MajorVersion(v Version) string {
	release, ok := c.NearestRelease(v)
	if !ok {
		return v.ID
	}
	label, ok := majorLabel(release.ID)
	if !ok {
		return release.ID
	}
	return label
}

// MajorVersionOf resolves the major label of v to a catalog entry.
func (c *Catalog) MajorVersionOf(v Version) (Version, bool) {
	release, ok := c.NearestRelease(v)
	if !ok {
		return Version{}, false
	}
	label, ok := majorLabel(release.ID)
	if !ok {
		return Version{}, false
	}
	return c.FromID(label)
}

// BestFit picks the newest release among vs, or the first entry when vs
// holds no release.
func BestFit(vs []Version) (Version, bool) {
	var best Version
	found := false
	for _, v := range vs {
		if v.IsRelease() && (!found || v.Compare(best) > 0) {
			best, found = v, true
		}
	}
	if found {
		return best, true
	}
	if len(vs) > 0 {
		return vs[0], true
	}
	return Version{}, false
}
