package server

import (
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/git-pkgs/switchboard/internal/catalog"
	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/git-pkgs/switchboard/internal/fields"
	"github.com/go-chi/chi/v5"
)

const maxFieldsBody = 64 << 10

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	vs := s.catalog.Versions()
	slices.Reverse(vs)
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	v, ok := s.catalog.FromID(chi.URLParam(r, "id"))
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleLatestVersion(w http.ResponseWriter, r *http.Request) {
	v, ok := s.catalog.Latest()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleLatestOfKind(w http.ResponseWriter, r *http.Request) {
	kind, err := catalog.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		names := make([]string, len(catalog.Kinds))
		for i, k := range catalog.Kinds {
			names[i] = string(k)
		}
		writeError(w, http.StatusBadRequest, "Invalid version type. Valid types are: "+strings.Join(names, ", "))
		return
	}

	v, ok := s.catalog.LatestOf(kind)
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleMajor(w http.ResponseWriter, r *http.Request) {
	v, ok := s.catalog.FromID(chi.URLParam(r, "id"))
	if !ok {
		notFound(w)
		return
	}

	body := map[string]any{
		"id":     v.ID,
		"major":  s.catalog.MajorVersion(v),
		"latest": s.catalog.IsLatest(v),
	}
	if release, ok := s.catalog.NearestRelease(v); ok {
		body["nearestRelease"] = release.ID
	}
	if major, ok := s.catalog.MajorVersionOf(v); ok {
		body["version"] = major
	}
	writeJSON(w, http.StatusOK, body)
}

// handlePistonMeta serves the metadata document of a version, projected
// to the fields named in ?fields= or in "fields ..." body lines.
func (s *Server) handlePistonMeta(w http.ResponseWriter, r *http.Request) {
	v, ok := s.catalog.FromID(chi.URLParam(r, "id"))
	if !ok {
		notFound(w)
		return
	}
	if s.documents == nil {
		notFound(w)
		return
	}

	paths := fields.Split(r.URL.Query().Get("fields"))
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxFieldsBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unreadable request body")
			return
		}
		for _, p := range fields.Parse(string(body)) {
			if !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}

	doc, err := s.documents.Document(r.Context(), v)
	if err != nil {
		if core.IsNotFound(err) {
			notFound(w)
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fields.Project(doc, paths))
}

func (s *Server) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Refresh(r.Context()); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": "minecraft", "versions": s.catalog.Len()})
}
