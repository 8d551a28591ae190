package fetch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

const (
	defaultTripThreshold = 5
	defaultCooldown      = 30 * time.Second
	maxCooldown          = 5 * time.Minute
)

// Breakers wraps an ArtifactFetcher with one circuit breaker per upstream
// host. Missing artifacts do not count as failures.
type Breakers struct {
	fetcher   ArtifactFetcher
	threshold int64
	cooldown  time.Duration

	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

// BreakerOption configures Breakers.
type BreakerOption func(*Breakers)

// WithTripThreshold sets how many consecutive failures open a breaker.
func WithTripThreshold(n int64) BreakerOption {
	return func(b *Breakers) {
		b.threshold = n
	}
}

// WithCooldown sets the first interval an open breaker waits before
// letting a trial request through.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breakers) {
		b.cooldown = d
	}
}

func NewBreakers(f ArtifactFetcher, opts ...BreakerOption) *Breakers {
	b := &Breakers{
		fetcher:   f,
		threshold: defaultTripThreshold,
		cooldown:  defaultCooldown,
		breakers:  make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breakers) breaker(host string) *circuit.Breaker {
	b.mu.RLock()
	cb, ok := b.breakers[host]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[host]; ok {
		return cb
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = b.cooldown
	retry.MaxInterval = max(b.cooldown, maxCooldown)
	retry.Multiplier = 2.0
	retry.MaxElapsedTime = 0
	retry.Reset()

	cb = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    retry,
		ShouldTrip: circuit.ConsecutiveTripFunc(b.threshold),
	})
	b.breakers[host] = cb
	return cb
}

// call runs fn under the breaker for rawURL's host.
func (b *Breakers) call(rawURL string, fn func() error) error {
	host := hostOf(rawURL)
	cb := b.breaker(host)
	if !cb.Ready() {
		return fmt.Errorf("circuit open for %s: %w", host, ErrUpstreamDown)
	}

	var missing error
	err := cb.Call(func() error {
		err := fn()
		if errors.Is(err, ErrNotFound) {
			missing = err
			return nil
		}
		return err
	}, 0)
	if err != nil {
		return err
	}
	return missing
}

func (b *Breakers) Fetch(ctx context.Context, rawURL string) (*Artifact, error) {
	var artifact *Artifact
	err := b.call(rawURL, func() error {
		var err error
		artifact, err = b.fetcher.Fetch(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (b *Breakers) Head(ctx context.Context, rawURL string) (int64, string, error) {
	var (
		size        int64
		contentType string
	)
	err := b.call(rawURL, func() error {
		var err error
		size, contentType, err = b.fetcher.Head(ctx, rawURL)
		return err
	})
	return size, contentType, err
}

// States reports "open" or "closed" for every host seen so far.
func (b *Breakers) States() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make(map[string]string, len(b.breakers))
	for host, cb := range b.breakers {
		if cb.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// Healthy reports whether no breaker is open.
func (b *Breakers) Healthy() bool {
	for state := range maps.Values(b.States()) {
		if state == "open" {
			return false
		}
	}
	return true
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
