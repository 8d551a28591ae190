// Package fetch downloads upstream artifacts and documents with retries,
// per-host circuit breaking, and a cached DNS resolver, and resolves the
// download location of companion releases.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/git-pkgs/switchboard/client"
	"github.com/rs/dnscache"
)

var (
	// ErrNotFound is the client sentinel so callers can test either.
	ErrNotFound     = client.ErrNotFound
	ErrRateLimited  = errors.New("rate limited by upstream")
	ErrUpstreamDown = errors.New("upstream unavailable")
)

const (
	defaultUserAgent  = "switchboard"
	dnsRefreshEvery   = 5 * time.Minute
	defaultMaxRetries = 3
	maxElapsed        = 2 * time.Minute
)

// Artifact is a streamed upstream response. The caller closes Body.
type Artifact struct {
	Body        io.ReadCloser
	Size        int64 // -1 if unknown
	ContentType string
	ETag        string
}

// ArtifactFetcher is what the document store and resolver need.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, url string) (*Artifact, error)
	Head(ctx context.Context, url string) (size int64, contentType string, err error)
}

// Fetcher streams artifacts from upstream hosts.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the DNS caching client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets the retries after the first attempt. Zero or less
// disables retrying.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the first backoff interval.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// NewFetcher creates a Fetcher. Close stops its DNS refresh loop.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:  defaultUserAgent,
		maxRetries: defaultMaxRetries,
		baseDelay:  500 * time.Millisecond,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{
			Timeout:   5 * time.Minute,
			Transport: f.cachingTransport(),
		}
	}
	return f
}

// Close releases the background resolver refresh.
func (f *Fetcher) Close() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *Fetcher) cachingTransport() *http.Transport {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(dnsRefreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-f.stop:
				return
			}
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var lastErr error
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			return nil, fmt.Errorf("dialing %s: %w", host, lastErr)
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Fetch downloads url. Rate limiting and 5xx responses are retried with
// exponential backoff; everything else fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Artifact, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.baseDelay
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = maxElapsed
	b.Reset()

	var artifact *Artifact
	op := func() error {
		var err error
		artifact, err = f.fetchOnce(ctx, url)
		if err == nil || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamDown) {
			return err
		}
		return backoff.Permanent(err)
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if f.maxRetries > 0 {
		policy = backoff.WithMaxRetries(b, uint64(f.maxRetries))
	}
	policy = backoff.WithContext(policy, ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return artifact, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Artifact, error) {
	resp, err := f.send(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		return &Artifact{
			Body:        resp.Body,
			Size:        contentLength(resp),
			ContentType: resp.Header.Get("Content-Type"),
			ETag:        resp.Header.Get("ETag"),
		}, nil
	}

	defer func() { _ = resp.Body.Close() }()
	return nil, statusError(resp, url)
}

// Head reports the size and content type of url without downloading it.
func (f *Fetcher) Head(ctx context.Context, url string) (int64, string, error) {
	resp, err := f.send(ctx, http.MethodHead, url)
	if err != nil {
		return 0, "", err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", statusError(resp, url)
	}
	return contentLength(resp), resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) send(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}

func statusError(resp *http.Response, url string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", url, ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: HTTP %d: %w", url, resp.StatusCode, ErrUpstreamDown)
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &client.HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(snippet)}
}

func contentLength(resp *http.Response) int64 {
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return n
		}
	}
	return -1
}
