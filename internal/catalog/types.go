// Package catalog tracks the ordered list of base (Minecraft) versions.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// DefaultManifestURL is the launcher manifest listing every base version.
const DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

// Kind classifies a base version.
type Kind string

const (
	Release  Kind = "release"
	Snapshot Kind = "snapshot"
	OldBeta  Kind = "old_beta"
	OldAlpha Kind = "old_alpha"
)

// Kinds lists every known kind in manifest order of precedence.
var Kinds = []Kind{Release, Snapshot, OldBeta, OldAlpha}

// ParseKind parses a manifest type string, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	switch k {
	case Release, Snapshot, OldBeta, OldAlpha:
		return k, nil
	}
	return "", fmt.Errorf("unknown version type %q", s)
}

// Version is one base version from the manifest. Values are immutable.
type Version struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"type"`
	URL         string    `json:"url"`
	Time        time.Time `json:"time"`
	ReleaseTime time.Time `json:"releaseTime"`
}

// IsRelease reports whether v is a stable release.
func (v Version) IsRelease() bool {
	return v.Kind == Release
}

// Compare orders versions by release time.
func (v Version) Compare(other Version) int {
	return v.ReleaseTime.Compare(other.ReleaseTime)
}

func (v Version) String() string {
	return v.ID
}

// majorLabel truncates a release identifier to its first two components.
func majorLabel(id string) (string, bool) {
	parts := strings.Split(id, ".")
	if len(parts) < 2 {
		return "", false
	}
	return parts[0] + "." + parts[1], true
}
