package core

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/git-pkgs/switchboard/internal/catalog"
)

// fakeSource answers from a fixed map of base id to releases.
type fakeSource struct {
	Base
	releases  map[string][]Release
	refreshed atomic.Int32
	err       error
}

func (f *fakeSource) LatestFor(ctx context.Context, base catalog.Version, pre bool) (Release, bool, error) {
	rs, err := f.ListFor(ctx, base, pre)
	if err != nil {
		return nil, false, err
	}
	r, ok := First(rs)
	return r, ok, nil
}

func (f *fakeSource) ListAll(context.Context, bool) ([]Release, error) {
	var all []Release
	for _, rs := range f.releases {
		all = append(all, rs...)
	}
	return all, nil
}

func (f *fakeSource) ListFor(_ context.Context, base catalog.Version, _ bool) ([]Release, error) {
	return f.releases[base.ID], nil
}

func (f *fakeSource) ForceRefresh(context.Context, bool) error {
	f.refreshed.Add(1)
	return f.err
}

func testCatalog() *catalog.Catalog {
	cat := catalog.New(nil)
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cat.Replace([]catalog.Version{
		{ID: "1.19.4", Kind: catalog.Release, ReleaseTime: t0},
		{ID: "1.20", Kind: catalog.Release, ReleaseTime: t0.Add(time.Hour)},
		{ID: "23w31a", Kind: catalog.Snapshot, ReleaseTime: t0.Add(2 * time.Hour)},
	}, "1.20", "23w31a")
	return cat
}

func TestRegisterAndNew(t *testing.T) {
	Register("fake", "https://fake.example", func(deps Deps) (Source, error) {
		if deps.BaseURL != "https://fake.example" {
			t.Errorf("BaseURL = %q, want default", deps.BaseURL)
		}
		if deps.Client == nil {
			t.Error("Client should default to DefaultClient()")
		}
		return &fakeSource{Base: NewBase("fake", deps)}, nil
	})

	src, err := New("fake", Deps{Catalog: testCatalog()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if src.Name() != "fake" {
		t.Errorf("Name() = %q, want fake", src.Name())
	}
	if !slices.Contains(Names(), "fake") {
		t.Error("Names() should include fake")
	}
	if DefaultURL("fake") != "https://fake.example" {
		t.Errorf("DefaultURL = %q", DefaultURL("fake"))
	}

	if _, err := New("fake", Deps{}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("New without catalog: err = %v, want ErrMissingDependency", err)
	}
	if _, err := New("nope", Deps{Catalog: testCatalog()}); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("New(nope): err = %v, want ErrUnknownSource", err)
	}
}

func TestLatest(t *testing.T) {
	src := &fakeSource{
		Base:     NewBase("fake", Deps{}),
		releases: map[string][]Release{"1.20": {Plain("2.0"), Plain("1.9")}},
	}

	r, ok, err := Latest(context.Background(), src, false)
	if err != nil || !ok || r.ID() != "2.0" {
		t.Errorf("Latest = %v, %v, %v; want 2.0", r, ok, err)
	}

	empty := &fakeSource{Base: NewBase("empty", Deps{})}
	if _, ok, _ := Latest(context.Background(), empty, false); ok {
		t.Error("Latest of an empty source should be absent")
	}
}

func TestExistsAndLookup(t *testing.T) {
	cat := testCatalog()
	src := &fakeSource{
		Base:     NewBase("fake", Deps{}),
		releases: map[string][]Release{"1.20": {Plain("2.0"), Plain("1.9")}},
	}
	v120, _ := cat.FromID("1.20")
	v1194, _ := cat.FromID("1.19.4")

	if ok, _ := Exists(context.Background(), src, v120, false); !ok {
		t.Error("Exists(1.20) = false")
	}
	if ok, _ := Exists(context.Background(), src, v1194, false); ok {
		t.Error("Exists(1.19.4) = true")
	}

	r, ok, err := Lookup(context.Background(), src, v120, "1.9")
	if err != nil || !ok || r.ID() != "1.9" {
		t.Errorf("Lookup(1.9) = %v, %v, %v", r, ok, err)
	}
	if _, ok, _ := Lookup(context.Background(), src, v120, "3.0"); ok {
		t.Error("Lookup(3.0) should be absent")
	}
}

func TestRefreshAll(t *testing.T) {
	a := &fakeSource{Base: NewBase("a", Deps{})}
	b := &fakeSource{Base: NewBase("b", Deps{}), err: ErrConfiguration}

	err := RefreshAll(context.Background(), []Source{a, b}, false)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("RefreshAll error = %v, want ErrConfiguration", err)
	}
	if a.refreshed.Load() != 1 || b.refreshed.Load() != 1 {
		t.Errorf("refresh counts = %d, %d; want 1, 1", a.refreshed.Load(), b.refreshed.Load())
	}
}

func TestReleaseVariants(t *testing.T) {
	rs := []Release{
		Plain("47.2.0"),
		LoaderBuild{Separator: ".", Build: 21, Maven: "net.fabricmc:fabric-loader:0.14.21", Version: "0.14.21", Stable: true},
		TaggedRelease{Version: "2024.01.01", BaseVersion: "1.21.1", Stable: true},
	}
	got := IDs(rs)
	want := []string{"47.2.0", "0.14.21", "2024.01.01"}
	if !slices.Equal(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
}
