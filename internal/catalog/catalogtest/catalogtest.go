// Package catalogtest provides a small fixed catalog for source tests.
package catalogtest

import (
	"testing"
	"time"

	"github.com/git-pkgs/switchboard/internal/catalog"
)

// IDs are the fixture versions, oldest first.
var IDs = []string{
	"b1.7.3",
	"1.12.2",
	"1.14.4",
	"19w36a",
	"1.15",
	"1.16.5",
	"1.19.4",
	"1.20",
	"1.20.1-rc1",
	"1.20.1",
	"1.20.4",
	"1.21",
	"1.21.1",
	"24w33a",
	"1.21.8",
}

var kinds = map[string]catalog.Kind{
	"b1.7.3":     catalog.OldBeta,
	"19w36a":     catalog.Snapshot,
	"1.20.1-rc1": catalog.Snapshot,
	"24w33a":     catalog.Snapshot,
}

// Start is the release time of the oldest fixture version. Each later
// version is released one day after the previous one.
var Start = time.Date(2011, 7, 8, 0, 0, 0, 0, time.UTC)

// New returns a catalog holding the fixture versions.
func New() *catalog.Catalog {
	versions := make([]catalog.Version, len(IDs))
	for i, id := range IDs {
		kind, ok := kinds[id]
		if !ok {
			kind = catalog.Release
		}
		released := Start.AddDate(0, 0, i)
		versions[i] = catalog.Version{
			ID:          id,
			Kind:        kind,
			URL:         "https://piston-meta.example/v1/packages/" + id + ".json",
			Time:        released,
			ReleaseTime: released,
		}
	}

	cat := catalog.New(nil)
	cat.Replace(versions, "1.21.8", "24w33a")
	return cat
}

// Get looks up id in cat and fails the test when it is missing.
func Get(t testing.TB, cat *catalog.Catalog, id string) catalog.Version {
	t.Helper()
	v, ok := cat.FromID(id)
	if !ok {
		t.Fatalf("catalog has no version %q", id)
	}
	return v
}
