// Package maven reads maven-metadata.xml version listings.
package maven

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/git-pkgs/switchboard/client"
)

// Metadata is the subset of maven-metadata.xml the sources use.
type Metadata struct {
	XMLName    xml.Name `xml:"metadata"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Versioning struct {
		Latest   string   `xml:"latest"`
		Release  string   `xml:"release"`
		Versions []string `xml:"versions>version"`
	} `xml:"versioning"`
}

// Parse decodes a metadata document and returns its versions in document
// order, trimmed, with blanks dropped.
func Parse(body []byte) ([]string, error) {
	var m Metadata
	if err := xml.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding maven metadata: %w", err)
	}
	return clean(m.Versioning.Versions), nil
}

// Versions fetches url and returns its versions in document order.
func Versions(ctx context.Context, c *client.Client, url string) ([]string, error) {
	var m Metadata
	if err := c.GetXML(ctx, url, &m); err != nil {
		return nil, err
	}
	return clean(m.Versioning.Versions), nil
}

// Newest fetches url and returns its versions newest first, assuming the
// repository lists them in publication order.
func Newest(ctx context.Context, c *client.Client, url string) ([]string, error) {
	versions, err := Versions(ctx, c, url)
	if err != nil {
		return nil, err
	}
	return Reverse(versions), nil
}

// Reverse returns a reversed copy of vs.
func Reverse(vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[len(vs)-1-i] = v
	}
	return out
}

func clean(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
