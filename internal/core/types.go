// Package core provides the shared source abstraction and the registry of
// upstream sources.
package core

import "strconv"

// Release is one companion release from an upstream. The set of variants is
// closed: Plain, LoaderBuild and TaggedRelease.
type Release interface {
	// ID is the identifier clients use to refer to the release.
	ID() string
	release()
}

// Plain is a release identified by a single version string.
type Plain string

func (p Plain) ID() string { return string(p) }
func (Plain) release()     {}

// LoaderBuild is a Fabric Loader build record.
type LoaderBuild struct {
	Separator string `json:"separator"`
	Build     int    `json:"build"`
	Maven     string `json:"maven"`
	Version   string `json:"version"`
	Stable    bool   `json:"stable"`
}

func (b LoaderBuild) ID() string { return b.Version }
func (LoaderBuild) release()     {}

func (b LoaderBuild) String() string {
	return b.Version + " (build " + strconv.Itoa(b.Build) + ")"
}

// TaggedRelease is a release harvested from a source-control tag shaped
// "<base>-<version>".
type TaggedRelease struct {
	Version     string `json:"version"`
	BaseVersion string `json:"minecraftVersion"`
	Stable      bool   `json:"stable"`
}

func (t TaggedRelease) ID() string { return t.Version }
func (TaggedRelease) release()     {}

// IDs returns the identifiers of rs in order.
func IDs(rs []Release) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID()
	}
	return ids
}

// Find returns the first release in rs whose identifier is id.
func Find(rs []Release, id string) (Release, bool) {
	for _, r := range rs {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// Plains wraps identifiers as Plain releases.
func Plains(ids []string) []Release {
	rs := make([]Release, len(ids))
	for i, id := range ids {
		rs[i] = Plain(id)
	}
	return rs
}
