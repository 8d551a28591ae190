package server

import (
	"errors"
	"net/http"

	"github.com/git-pkgs/switchboard/fetch"
	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/go-chi/chi/v5"
)

// sourceRoutes mounts the routes every source has, plus the ones its
// optional capabilities allow.
func (s *Server) sourceRoutes(r chi.Router, src core.Source) {
	h := sourceHandlers{Server: s, src: src}

	r.Get("/versions", h.listAll)
	r.Get("/versions/{mc}", h.listFor)
	r.Get("/versions/{mc}/{version}", h.find)
	r.Get("/latest", h.latest)
	r.Get("/latest/{mc}", h.latestFor)
	r.Get("/exists/{mc}", h.exists)
	r.Post("/refresh", h.refresh)

	if s.resolver != nil {
		r.Get("/download/{mc}/{version}", h.download)
	}
	if rec, ok := src.(core.Recommender); ok {
		r.Get("/recommended/{mc}", h.recommended(rec))
		r.Get("/recommended/{mc}/{version}", h.isRecommended(rec))
	}
	if g, ok := src.(core.Grouper); ok {
		r.Get("/grouped", h.grouped(g))
	}
}

type sourceHandlers struct {
	*Server
	src core.Source
}

// base resolves the {mc} parameter. "latest" names the newest release, or
// the newest version of any kind when prereleases are included.
func (h sourceHandlers) base(w http.ResponseWriter, r *http.Request, pre bool) (catalog.Version, bool) {
	id := chi.URLParam(r, "mc")

	var (
		v  catalog.Version
		ok bool
	)
	switch {
	case id == "latest" && pre:
		v, ok = h.catalog.Latest()
	case id == "latest":
		v, ok = h.catalog.LatestRelease()
	default:
		v, ok = h.catalog.FromID(id)
	}
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidBase)
	}
	return v, ok
}

func (h sourceHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	pre, ok := includePrereleases(w, r)
	if !ok {
		return
	}
	rs, err := h.src.ListAll(r.Context(), pre)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, releaseList(rs))
}

func (h sourceHandlers) listFor(w http.ResponseWriter, r *http.Request) {
	pre, ok := includePrereleases(w, r)
	if !ok {
		return
	}
	base, ok := h.base(w, r, pre)
	if !ok {
		return
	}
	rs, err := h.src.ListFor(r.Context(), base, pre)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, releaseList(rs))
}

func (h sourceHandlers) find(w http.ResponseWriter, r *http.Request) {
	base, ok := h.base(w, r, true)
	if !ok {
		return
	}
	rel, ok, err := core.Lookup(r.Context(), h.src, base, chi.URLParam(r, "version"))
	h.writeRelease(w, r, rel, ok, err)
}

func (h sourceHandlers) latest(w http.ResponseWriter, r *http.Request) {
	pre, ok := includePrereleases(w, r)
	if !ok {
		return
	}
	rel, ok, err := core.Latest(r.Context(), h.src, pre)
	h.writeRelease(w, r, rel, ok, err)
}

func (h sourceHandlers) latestFor(w http.ResponseWriter, r *http.Request) {
	pre, ok := includePrereleases(w, r)
	if !ok {
		return
	}
	base, ok := h.base(w, r, pre)
	if !ok {
		return
	}
	rel, ok, err := h.src.LatestFor(r.Context(), base, pre)
	h.writeRelease(w, r, rel, ok, err)
}

func (h sourceHandlers) exists(w http.ResponseWriter, r *http.Request) {
	pre, ok := includePrereleases(w, r)
	if !ok {
		return
	}
	base, ok := h.base(w, r, pre)
	if !ok {
		return
	}
	found, err := core.Exists(r.Context(), h.src, base, pre)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": found})
}

func (h sourceHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	pre, ok := includePrereleases(w, r)
	if !ok {
		return
	}
	if err := h.src.ForceRefresh(r.Context(), pre); err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"refreshed": h.src.Name()})
}

func (h sourceHandlers) download(w http.ResponseWriter, r *http.Request) {
	base, ok := h.base(w, r, true)
	if !ok {
		return
	}
	info, err := h.resolver.Resolve(r.Context(), h.src.Name(), base, chi.URLParam(r, "version"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, info)
	case core.IsNotFound(err), errors.Is(err, fetch.ErrNoDownloadURL):
		notFound(w)
	default:
		h.internalError(w, r, err)
	}
}

func (h sourceHandlers) recommended(rec core.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base, ok := h.base(w, r, false)
		if !ok {
			return
		}
		rel, ok, err := rec.RecommendedFor(r.Context(), base)
		h.writeRelease(w, r, rel, ok, err)
	}
}

func (h sourceHandlers) isRecommended(rec core.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base, ok := h.base(w, r, false)
		if !ok {
			return
		}
		yes, err := rec.IsRecommended(r.Context(), base, chi.URLParam(r, "version"))
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"recommended": yes})
	}
}

func (h sourceHandlers) grouped(g core.Grouper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pre, ok := includePrereleases(w, r)
		if !ok {
			return
		}
		groups, err := g.Grouped(r.Context(), pre)
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

func (h sourceHandlers) writeRelease(w http.ResponseWriter, r *http.Request, rel core.Release, ok bool, err error) {
	switch {
	case err != nil:
		h.internalError(w, r, err)
	case !ok:
		notFound(w)
	default:
		writeJSON(w, http.StatusOK, releaseBody(rel))
	}
}
