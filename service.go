package switchboard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/git-pkgs/switchboard/client"
	"github.com/git-pkgs/switchboard/fetch"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/config"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/metrics"
	"github.com/git-pkgs/switchboard/internal/pistonmeta"
	"github.com/git-pkgs/switchboard/internal/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config is the service configuration.
type Config = config.Config

// LoadConfig reads the configuration from defaults, an optional file and
// the environment.
func LoadConfig(file string) (*Config, error) {
	return config.Load(file, nil)
}

const shutdownTimeout = 10 * time.Second

// Service wires the catalog, every enabled source and the HTTP server.
type Service struct {
	cfg      *Config
	log      *zap.Logger
	catalog  *catalog.Catalog
	sources  []core.Source
	fetcher  *fetch.Fetcher
	breakers *fetch.Breakers
	metrics  *metrics.Metrics
	handler  http.Handler
}

// NewService builds a service from cfg. Nothing is fetched until Warmup
// or Run.
func NewService(cfg *Config, log *zap.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("switchboard: config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := client.NewClient(
		client.WithTimeout(cfg.HTTP.Timeout),
		client.WithMaxRetries(cfg.HTTP.MaxRetries),
	).WithUserAgent(cfg.HTTP.UserAgent)

	cat := catalog.New(c,
		catalog.WithManifestURL(cfg.Catalog.ManifestURL),
		catalog.WithLogger(log.Named("catalog")),
	)

	fetcher := fetch.NewFetcher(fetch.WithUserAgent(cfg.HTTP.UserAgent))
	breakers := fetch.NewBreakers(fetcher,
		fetch.WithTripThreshold(cfg.Breaker.Threshold),
		fetch.WithCooldown(cfg.Breaker.Cooldown),
	)
	docs := pistonmeta.New(filepath.Join(cfg.Cache.Dir, "piston-meta"), breakers, log.Named("piston-meta"))
	m := metrics.New()

	var sources []core.Source
	resolver := fetch.NewResolver(fetch.WithVerifier(breakers))
	for _, name := range core.Names() {
		sc := cfg.Source(name)
		if sc.Disabled {
			log.Info("source disabled", zap.String("source", name))
			continue
		}
		src, err := core.New(name, core.Deps{
			Client:    c,
			Catalog:   cat,
			Logger:    log.Named(name),
			Metrics:   m,
			Documents: docs,
			TTL:       sc.TTL,
			BaseURL:   sc.URL,
			WorkDir:   cfg.Cache.Dir,
		})
		if err != nil {
			fetcher.Close()
			return nil, fmt.Errorf("creating source %s: %w", name, err)
		}
		sources = append(sources, src)
		resolver.Register(src)
	}

	srv, err := server.New(server.Options{
		Catalog:   cat,
		Sources:   sources,
		Documents: docs,
		Resolver:  resolver,
		Health:    breakers,
		Metrics:   m,
		Logger:    log.Named("http"),
	})
	if err != nil {
		fetcher.Close()
		return nil, err
	}

	return &Service{
		cfg:      cfg,
		log:      log,
		catalog:  cat,
		sources:  sources,
		fetcher:  fetcher,
		breakers: breakers,
		metrics:  m,
		handler:  srv,
	}, nil
}

// Handler returns the HTTP handler.
func (s *Service) Handler() http.Handler { return s.handler }

// Catalog returns the Minecraft version catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Sources returns the enabled sources in name order.
func (s *Service) Sources() []Source { return s.sources }

// Warmup loads the catalog and then every source. A catalog failure is
// returned immediately; source failures are joined.
func (s *Service) Warmup(ctx context.Context) error {
	if err := s.refreshCatalog(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := core.RefreshAll(ctx, s.sources, true)
	s.log.Info("warmup finished",
		zap.Int("sources", len(s.sources)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}

func (s *Service) refreshCatalog(ctx context.Context) error {
	if err := s.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing catalog: %w", err)
	}
	s.metrics.CatalogVersions.Set(float64(s.catalog.Len()))
	return nil
}

// Run serves HTTP until ctx is cancelled and refreshes the catalog
// periodically.
func (s *Service) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if interval := s.cfg.Catalog.RefreshInterval; interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := s.refreshCatalog(ctx); err != nil {
						s.log.Warn("catalog refresh failed", zap.Error(err))
					}
				}
			}
		})
	}

	return g.Wait()
}

// Close releases background resources.
func (s *Service) Close() {
	s.fetcher.Close()
}
