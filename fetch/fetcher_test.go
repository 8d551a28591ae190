package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/git-pkgs/switchboard/client"
)

func newFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	f := NewFetcher(append([]Option{WithBaseDelay(time.Millisecond)}, opts...)...)
	t.Cleanup(f.Close)
	return f
}

func TestFetchSuccess(t *testing.T) {
	content := `{"id": "1.20.1"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "switchboard" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"abc123"`)
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	artifact, err := newFetcher(t).Fetch(context.Background(), server.URL+"/v1/packages/1.20.1.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer func() { _ = artifact.Body.Close() }()

	if artifact.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", artifact.Size, len(content))
	}
	if artifact.ContentType != "application/json" {
		t.Errorf("ContentType = %q", artifact.ContentType)
	}
	if artifact.ETag != `"abc123"` {
		t.Errorf("ETag = %q", artifact.ETag)
	}
	body, _ := io.ReadAll(artifact.Body)
	if string(body) != content {
		t.Errorf("body = %q, want %q", body, content)
	}
}

func TestFetchNotFound(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newFetcher(t).Fetch(context.Background(), server.URL+"/missing.json")
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, client.ErrNotFound) {
		t.Errorf("Fetch = %v, want ErrNotFound", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("404 was requested %d times, want 1", n)
	}
}

func TestFetchRetries(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(status)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))

		artifact, err := newFetcher(t).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Errorf("status %d: Fetch failed: %v", status, err)
		} else {
			_ = artifact.Body.Close()
		}
		if n := hits.Load(); n != 3 {
			t.Errorf("status %d: %d requests, want 3", status, n)
		}
		server.Close()
	}
}

func TestFetchGivesUp(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newFetcher(t, WithMaxRetries(2)).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("Fetch = %v, want ErrUpstreamDown", err)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("%d requests, want 3", n)
	}
}

func TestFetchZeroRetriesMeansOneAttempt(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := newFetcher(t, WithMaxRetries(0)).Fetch(ctx, server.URL)
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("Fetch = %v, want ErrUpstreamDown", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("%d requests, want 1", n)
	}
}

func TestFetchClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer server.Close()

	_, err := newFetcher(t).Fetch(context.Background(), server.URL)
	var httpErr *client.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden || httpErr.Body != "denied" {
		t.Errorf("Fetch = %v, want HTTP 403", err)
	}
}

func TestFetchContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newFetcher(t).Fetch(ctx, server.URL); err == nil {
		t.Error("Fetch with cancelled context should fail")
	}
}

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if r.URL.Path == "/missing.jar" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", "1234")
		w.Header().Set("Content-Type", "application/java-archive")
	}))
	defer server.Close()

	f := newFetcher(t)
	size, contentType, err := f.Head(context.Background(), server.URL+"/forge.jar")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if size != 1234 || contentType != "application/java-archive" {
		t.Errorf("Head = %d, %q", size, contentType)
	}

	if _, _, err := f.Head(context.Background(), server.URL+"/missing.jar"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Head(missing) = %v, want ErrNotFound", err)
	}
}

func TestFilenameFromURL(t *testing.T) {
	tests := map[string]string{
		"https://maven.example/a/b/forge-1.20.1-47.1.0-installer.jar": "forge-1.20.1-47.1.0-installer.jar",
		"https://piston-data.example/client.txt?sig=abc":              "client.txt",
		"plain":                                                        "plain",
	}
	for in, want := range tests {
		if got := filenameFromURL(in); got != want {
			t.Errorf("filenameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
