package client

import (
	"fmt"
	"strings"

	packageurl "github.com/git-pkgs/packageurl-go"
)

// URLBuilder constructs artifact URLs for a companion release.
type URLBuilder interface {
	Download(baseVersion, version string) string
	Documentation(baseVersion, version string) string
	PURL(baseVersion, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	DownloadFn      func(baseVersion, version string) string
	DocumentationFn func(baseVersion, version string) string
	PURLFn          func(baseVersion, version string) string
}

func (b *BaseURLs) Download(baseVersion, version string) string {
	if b.DownloadFn != nil {
		return b.DownloadFn(baseVersion, version)
	}
	return ""
}

func (b *BaseURLs) Documentation(baseVersion, version string) string {
	if b.DocumentationFn != nil {
		return b.DocumentationFn(baseVersion, version)
	}
	return ""
}

func (b *BaseURLs) PURL(baseVersion, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(baseVersion, version)
	}
	return ""
}

// BuildURLs returns a map of all non-empty URLs for a release.
// Keys are "download", "docs", and "purl".
func BuildURLs(urls URLBuilder, baseVersion, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Download(baseVersion, version); v != "" {
		result["download"] = v
	}
	if v := urls.Documentation(baseVersion, version); v != "" {
		result["docs"] = v
	}
	if v := urls.PURL(baseVersion, version); v != "" {
		result["purl"] = v
	}
	return result
}

// Maven describes an artifact published to a maven repository.
type Maven struct {
	Repository string // e.g. "https://maven.fabricmc.net"
	Group      string // e.g. "net.fabricmc"
	Artifact   string // e.g. "fabric-loader"
	Classifier string // optional, e.g. "installer"
	Extension  string // defaults to "jar"
}

// ParseCoordinate parses "group:artifact:version" into a Maven and version.
func ParseCoordinate(repository, coordinate string) (Maven, string, bool) {
	parts := strings.Split(coordinate, ":")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Maven{}, "", false
	}
	m := Maven{Repository: repository, Group: parts[0], Artifact: parts[1]}
	if len(parts) > 3 {
		m.Classifier = parts[3]
	}
	return m, parts[2], true
}

// MetadataURL returns the maven-metadata.xml location for the artifact.
func (m Maven) MetadataURL() string {
	return fmt.Sprintf("%s/%s/%s/maven-metadata.xml", strings.TrimSuffix(m.Repository, "/"), strings.ReplaceAll(m.Group, ".", "/"), m.Artifact)
}

// Download returns the artifact URL for version.
func (m Maven) Download(version string) string {
	if version == "" {
		return ""
	}
	ext := m.Extension
	if ext == "" {
		ext = "jar"
	}
	file := m.Artifact + "-" + version
	if m.Classifier != "" {
		file += "-" + m.Classifier
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s", strings.TrimSuffix(m.Repository, "/"), strings.ReplaceAll(m.Group, ".", "/"), m.Artifact, version, file, ext)
}

// Coordinate returns the "group:artifact:version" form.
func (m Maven) Coordinate(version string) string {
	return m.Group + ":" + m.Artifact + ":" + version
}

// PURL returns the Package URL for version.
func (m Maven) PURL(version string) string {
	var qualifiers packageurl.Qualifiers
	if m.Repository != "" {
		qualifiers = append(qualifiers, packageurl.Qualifier{Key: "repository_url", Value: m.Repository})
	}
	if m.Classifier != "" {
		qualifiers = append(qualifiers, packageurl.Qualifier{Key: "classifier", Value: m.Classifier})
	}
	if m.Extension != "" && m.Extension != "jar" {
		qualifiers = append(qualifiers, packageurl.Qualifier{Key: "type", Value: m.Extension})
	}
	return packageurl.NewPackageURL(packageurl.TypeMaven, m.Group, m.Artifact, version, qualifiers, "").ToString()
}
