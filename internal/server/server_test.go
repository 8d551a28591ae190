package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/fetch"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/catalog/catalogtest"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource answers from a fixed map of base id to releases, newest first.
type stubSource struct {
	core.Base
	releases  map[string][]core.Release
	all       []core.Release
	refreshed int
	err       error
}

func (s *stubSource) LatestFor(ctx context.Context, base catalog.Version, pre bool) (core.Release, bool, error) {
	rs, err := s.ListFor(ctx, base, pre)
	if err != nil {
		return nil, false, err
	}
	r, ok := core.First(rs)
	return r, ok, nil
}

func (s *stubSource) ListAll(context.Context, bool) ([]core.Release, error) {
	return s.all, s.err
}

func (s *stubSource) ListFor(_ context.Context, base catalog.Version, _ bool) ([]core.Release, error) {
	return s.releases[base.ID], s.err
}

func (s *stubSource) ForceRefresh(context.Context, bool) error {
	s.refreshed++
	return s.err
}

type forgeStub struct {
	stubSource
}

func (f *forgeStub) RecommendedFor(_ context.Context, base catalog.Version) (core.Release, bool, error) {
	if base.ID != "1.20.1" {
		return nil, false, nil
	}
	return core.Plain("1.20.1-47.1.0"), true, nil
}

func (f *forgeStub) IsRecommended(_ context.Context, base catalog.Version, version string) (bool, error) {
	return base.ID == "1.20.1" && version == "1.20.1-47.1.0", nil
}

func (f *forgeStub) Grouped(context.Context, bool) (map[string][]core.Release, error) {
	return f.releases, nil
}

func (f *forgeStub) URLs() client.URLBuilder {
	m := client.Maven{Repository: "https://maven.example", Group: "net.minecraftforge", Artifact: "forge", Classifier: "installer"}
	return &client.BaseURLs{DownloadFn: func(_, v string) string { return m.Download(v) }}
}

type docStore map[string]map[string]any

func (d docStore) Document(_ context.Context, v catalog.Version) (map[string]any, error) {
	doc, ok := d[v.ID]
	if !ok {
		return nil, &client.NotFoundError{Upstream: "piston-meta", BaseVersion: v.ID}
	}
	return doc, nil
}

type health struct{ ok bool }

func (h health) States() map[string]string {
	if h.ok {
		return map[string]string{"maven.example": "closed"}
	}
	return map[string]string{"maven.example": "open"}
}

func (h health) Healthy() bool { return h.ok }

type fixture struct {
	server *httptest.Server
	forge  *forgeStub
	loader *stubSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	forgeReleases := map[string][]core.Release{
		"1.20.1": core.Plains([]string{"1.20.1-47.1.0", "1.20.1-47.0.0"}),
		"1.21":   core.Plains([]string{"1.21-51.0.1"}),
	}
	forge := &forgeStub{stubSource{
		Base:     core.NewBase("forge", core.Deps{}),
		releases: forgeReleases,
		all:      core.Plains([]string{"1.21-51.0.1", "1.20.1-47.1.0", "1.20.1-47.0.0"}),
	}}

	build := core.LoaderBuild{Separator: ".", Build: 13, Maven: "net.fabricmc:fabric-loader:0.16.13", Version: "0.16.13", Stable: true}
	loader := &stubSource{
		Base:     core.NewBase("fabric-loader", core.Deps{}),
		releases: map[string][]core.Release{"1.20.1": {build}},
		all:      []core.Release{build},
	}

	resolver := fetch.NewResolver()
	resolver.Register(forge)

	srv, err := New(Options{
		Catalog: catalogtest.New(),
		Sources: []core.Source{forge, loader},
		Documents: docStore{"1.20.1": {
			"id":        "1.20.1",
			"mainClass": "net.minecraft.client.main.Main",
			"downloads": map[string]any{"client": map[string]any{"url": "https://example.com/client.jar", "sha1": "abc"}},
		}},
		Resolver: resolver,
		Health:   health{ok: true},
		Metrics:  metrics.New(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &fixture{server: ts, forge: forge, loader: loader}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	return f.do(t, http.MethodGet, path, "")
}

func TestNewRequiresCatalog(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "/forge", Prefix("forge"))
	assert.Equal(t, "/fabric/loader", Prefix("fabric-loader"))
	assert.Equal(t, "/fabric/api", Prefix("fabric-api"))
}

func TestStatusAndHealth(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Switchboard is running.")
	assert.Contains(t, body, `"fabric-loader"`)

	status, body = f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","versions":15,"breakers":{"maven.example":"closed"}}`, body)
}

func TestHealthDegraded(t *testing.T) {
	srv, err := New(Options{Catalog: catalogtest.New(), Health: health{ok: false}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)

	empty, err := New(Options{Catalog: catalog.New(nil)})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	empty.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMinecraftRoutes(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/minecraft/versions")
	require.Equal(t, http.StatusOK, status)
	var versions []catalog.Version
	require.NoError(t, json.Unmarshal([]byte(body), &versions))
	require.Len(t, versions, len(catalogtest.IDs))
	assert.Equal(t, "1.21.8", versions[0].ID)
	assert.Equal(t, "b1.7.3", versions[len(versions)-1].ID)

	status, body = f.get(t, "/minecraft/versions/1.20.1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"type":"release"`)

	status, body = f.get(t, "/minecraft/versions/9.9")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not Found"}`, body)

	status, body = f.get(t, "/minecraft/latest")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"id":"1.21.8"`)

	status, body = f.get(t, "/minecraft/latest/snapshot")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"id":"24w33a"`)

	status, body = f.get(t, "/minecraft/latest/OLD_BETA")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"id":"b1.7.3"`)

	status, _ = f.get(t, "/minecraft/latest/old_alpha")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.get(t, "/minecraft/latest/nightly")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "release, snapshot, old_beta, old_alpha")
}

func TestMajor(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/minecraft/major/24w33a")
	require.Equal(t, http.StatusOK, status)
	var got struct {
		ID             string          `json:"id"`
		Major          string          `json:"major"`
		Latest         bool            `json:"latest"`
		NearestRelease string          `json:"nearestRelease"`
		Version        catalog.Version `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "1.21", got.Major)
	assert.True(t, got.Latest)
	assert.Equal(t, "1.21.8", got.NearestRelease)
	assert.Equal(t, "1.21", got.Version.ID)

	status, _ = f.get(t, "/minecraft/major/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPistonMeta(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/minecraft/piston-meta/1.20.1?fields=mainClass")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"mainClass":"net.minecraft.client.main.Main"}`, body)

	status, body = f.do(t, http.MethodPost, "/minecraft/piston-meta/1.20.1", "fields downloads.client.url, missing.path\n")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"downloads":{"client":{"url":"https://example.com/client.jar"}}}`, body)

	status, body = f.get(t, "/minecraft/piston-meta/1.20.1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"sha1":"abc"`)

	status, _ = f.get(t, "/minecraft/piston-meta/1.21")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.get(t, "/minecraft/piston-meta/9.9")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSourceListing(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/forge/versions")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["1.21-51.0.1","1.20.1-47.1.0","1.20.1-47.0.0"]`, body)

	status, body = f.get(t, "/forge/versions/1.20.1")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["1.20.1-47.1.0","1.20.1-47.0.0"]`, body)

	status, body = f.get(t, "/forge/versions/1.16.5")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)

	status, body = f.get(t, "/forge/versions/9.9")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Invalid Minecraft version"}`, body)

	status, body = f.get(t, "/forge/versions/1.20.1/1.20.1-47.0.0")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"1.20.1-47.0.0"}`, body)

	status, _ = f.get(t, "/forge/versions/1.20.1/1.20.1-1.0.0")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSourceLatest(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/forge/latest")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"1.21-51.0.1"}`, body)

	status, body = f.get(t, "/forge/latest/1.20.1")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"1.20.1-47.1.0"}`, body)

	status, body = f.get(t, "/forge/latest/1.16.5")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not Found"}`, body)

	status, _ = f.get(t, "/forge/latest/1.20.1?includePrereleases=maybe")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.get(t, "/fabric/loader/latest/1.20.1?includePrereleases=true")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"separator":".","build":13,"maven":"net.fabricmc:fabric-loader:0.16.13","version":"0.16.13","stable":true}`, body)
}

func TestSourceLatestAlias(t *testing.T) {
	f := newFixture(t)
	f.forge.releases["1.21.8"] = core.Plains([]string{"1.21.8-58.0.10"})
	f.forge.releases["24w33a"] = core.Plains([]string{"24w33a-0.1"})

	status, body := f.get(t, "/forge/latest/latest")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"1.21.8-58.0.10"}`, body)
}

func TestSourceExistsAndRefresh(t *testing.T) {
	f := newFixture(t)

	_, body := f.get(t, "/forge/exists/1.20.1")
	assert.JSONEq(t, `{"exists":true}`, body)
	_, body = f.get(t, "/forge/exists/1.16.5")
	assert.JSONEq(t, `{"exists":false}`, body)

	status, body := f.do(t, http.MethodPost, "/fabric/loader/refresh", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"refreshed":"fabric-loader"}`, body)
	assert.Equal(t, 1, f.loader.refreshed)

	f.loader.err = core.ErrConfiguration
	status, body = f.do(t, http.MethodPost, "/fabric/loader/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, body)

	status, _ = f.get(t, "/fabric/loader/versions")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestRecommendedAndGrouped(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/forge/recommended/1.20.1")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":"1.20.1-47.1.0"}`, body)

	status, _ = f.get(t, "/forge/recommended/1.21")
	assert.Equal(t, http.StatusNotFound, status)

	_, body = f.get(t, "/forge/recommended/1.20.1/1.20.1-47.0.0")
	assert.JSONEq(t, `{"recommended":false}`, body)

	status, body = f.get(t, "/forge/grouped")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"1.20.1":["1.20.1-47.1.0","1.20.1-47.0.0"],"1.21":["1.21-51.0.1"]}`, body)

	status, _ = f.get(t, "/fabric/loader/recommended/1.20.1")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/forge/download/1.20.1/1.20.1-47.1.0")
	require.Equal(t, http.StatusOK, status)
	var info fetch.ArtifactInfo
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	assert.Equal(t, "https://maven.example/net/minecraftforge/forge/1.20.1-47.1.0/forge-1.20.1-47.1.0-installer.jar", info.URL)
	assert.Equal(t, "forge-1.20.1-47.1.0-installer.jar", info.Filename)

	status, _ = f.get(t, "/forge/download/1.20.1/1.20.1-0.0.1")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.get(t, "/fabric/loader/download/1.20.1/0.16.13")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestUnknownRouteAndMetrics(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/quilt/versions")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not Found"}`, body)

	f.get(t, "/forge/versions")
	status, body = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `route="/forge/versions"`)
}
