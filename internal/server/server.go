// Package server maps HTTP routes onto the catalog and the upstream
// sources.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/git-pkgs/switchboard/fetch"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HealthReporter exposes upstream circuit breaker states.
type HealthReporter interface {
	States() map[string]string
	Healthy() bool
}

// Options are the collaborators of a Server. Only Catalog is required.
type Options struct {
	Catalog   *catalog.Catalog
	Sources   []core.Source
	Documents core.DocumentStore
	Resolver  *fetch.Resolver
	Health    HealthReporter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type Server struct {
	catalog   *catalog.Catalog
	sources   []core.Source
	documents core.DocumentStore
	resolver  *fetch.Resolver
	health    HealthReporter
	metrics   *metrics.Metrics
	log       *zap.Logger
	router    chi.Router
}

func New(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		return nil, errors.New("server: catalog is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		catalog:   opts.Catalog,
		sources:   opts.Sources,
		documents: opts.Documents,
		resolver:  opts.Resolver,
		health:    opts.Health,
		metrics:   opts.Metrics,
		log:       log,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Prefix returns the route prefix of a source: "fabric-loader" is served
// under /fabric/loader, "forge" under /forge.
func Prefix(name string) string {
	return "/" + strings.ReplaceAll(name, "-", "/")
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/", s.handleStatus)
	r.Get("/healthz", s.handleHealth)

	r.Route("/minecraft", func(r chi.Router) {
		r.Get("/versions", s.handleVersions)
		r.Get("/versions/{id}", s.handleVersion)
		r.Get("/latest", s.handleLatestVersion)
		r.Get("/latest/{kind}", s.handleLatestOfKind)
		r.Get("/major/{id}", s.handleMajor)
		r.Get("/piston-meta/{id}", s.handlePistonMeta)
		r.Post("/piston-meta/{id}", s.handlePistonMeta)
		r.Post("/refresh", s.handleCatalogRefresh)
	})

	for _, src := range s.sources {
		r.Route(Prefix(src.Name()), func(r chi.Router) {
			s.sourceRoutes(r, src)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Switchboard is running.",
		"sources":  names,
		"versions": s.catalog.Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"versions": s.catalog.Len(),
	}
	if s.health != nil {
		body["breakers"] = s.health.States()
		if !s.health.Healthy() {
			body["status"] = "degraded"
		}
	}

	status := http.StatusOK
	if s.catalog.Len() == 0 {
		body["status"] = "starting"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}
