package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/git-pkgs/switchboard/internal/core"
	"go.uber.org/zap"
)

const (
	msgInvalidBase = "Invalid Minecraft version"
	msgNotFound    = "Not Found"
	msgInternal    = "Internal Server Error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, msgNotFound)
}

// internalError logs err and answers without detail.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// includePrereleases reads the includePrereleases query flag.
func includePrereleases(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("includePrereleases")
	if raw == "" {
		return false, true
	}
	pre, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid includePrereleases value")
		return false, false
	}
	return pre, true
}

// releaseBody renders a single release. Plain identifiers are wrapped so
// every single-release answer is an object.
func releaseBody(rel core.Release) any {
	if p, ok := rel.(core.Plain); ok {
		return map[string]string{"version": string(p)}
	}
	return rel
}

func releaseList(rs []core.Release) []core.Release {
	if rs == nil {
		return []core.Release{}
	}
	return rs
}
