package mojmap

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/catalog/catalogtest"
	"github.com/git-pkgs/switchboard/internal/core"
)

type fakeDocuments map[string]map[string]any

func (f fakeDocuments) Document(_ context.Context, v catalog.Version) (map[string]any, error) {
	doc, ok := f[v.ID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return doc, nil
}

func TestListAll(t *testing.T) {
	s := New(core.Deps{Catalog: catalogtest.New()})

	rs, err := s.ListAll(context.Background(), false)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	want := []string{"1.21.8", "1.21.1", "1.21", "1.20.4", "1.20.1", "1.20", "1.19.4", "1.16.5", "1.15", "1.14.4"}
	if got := core.IDs(rs); !slices.Equal(got, want) {
		t.Errorf("ListAll = %v, want %v", got, want)
	}

	rs, _ = s.ListAll(context.Background(), true)
	got := core.IDs(rs)
	for _, id := range []string{"24w33a", "1.20.1-rc1", "19w36a"} {
		if !slices.Contains(got, id) {
			t.Errorf("ListAll(pre) missing %s", id)
		}
	}
	if slices.Contains(got, "1.12.2") || slices.Contains(got, "b1.7.3") {
		t.Errorf("ListAll(pre) includes versions older than %s: %v", FirstVersion, got)
	}
}

func TestLatestFor(t *testing.T) {
	cat := catalogtest.New()
	s := New(core.Deps{Catalog: cat})

	r, ok, _ := s.LatestFor(context.Background(), catalogtest.Get(t, cat, "1.20.1"), false)
	if !ok || r.ID() != "1.20.1" {
		t.Errorf("LatestFor(1.20.1) = %v, %v", r, ok)
	}
	if _, ok, _ := s.LatestFor(context.Background(), catalogtest.Get(t, cat, "1.12.2"), false); ok {
		t.Error("LatestFor(1.12.2) should be absent")
	}
	if _, ok, _ := s.LatestFor(context.Background(), catalogtest.Get(t, cat, "24w33a"), false); ok {
		t.Error("LatestFor(24w33a) without prereleases should be absent")
	}
	if _, ok, _ := s.LatestFor(context.Background(), catalog.Version{ID: "9.9", Kind: catalog.Release}, false); ok {
		t.Error("LatestFor(unknown) should be absent")
	}
}

func TestLocate(t *testing.T) {
	cat := catalogtest.New()
	docs := fakeDocuments{
		"1.20.1": {
			"downloads": map[string]any{
				"client_mappings": map[string]any{"url": "https://piston-data.example/client.txt"},
			},
		},
		"1.20": {"downloads": map[string]any{}},
	}
	s := New(core.Deps{Catalog: cat, Documents: docs})

	url, err := s.Locate(context.Background(), catalogtest.Get(t, cat, "1.20.1"), "1.20.1")
	if err != nil || url != "https://piston-data.example/client.txt" {
		t.Errorf("Locate(1.20.1) = %q, %v", url, err)
	}

	if _, err := s.Locate(context.Background(), catalogtest.Get(t, cat, "1.20"), "1.20"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Locate without mappings: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Locate(context.Background(), catalogtest.Get(t, cat, "1.20"), "1.20.1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Locate with mismatched version: err = %v, want ErrNotFound", err)
	}

	bare := New(core.Deps{Catalog: cat})
	if _, err := bare.Locate(context.Background(), catalogtest.Get(t, cat, "1.20.1"), "1.20.1"); !errors.Is(err, core.ErrMissingDependency) {
		t.Errorf("Locate without store: err = %v, want ErrMissingDependency", err)
	}
}
