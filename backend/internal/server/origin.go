package server

import (
	"net/http"
	"strings"

	"folio/backend/internal/server/dto"
)

// originAllowed reports whether a browser Origin header is acceptable. An
// empty origin (curl, same-origin fetch without the header) is allowed; the
// allow-list only filters cross-origin browser traffic.
func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// originMiddleware enforces the origin allow-list on /api/ paths and emits
// CORS headers for allowed origins, including preflight responses. Static
// assets pass through untouched.
func (s *Server) originMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		origin := r.Header.Get("Origin")
		if !s.originAllowed(origin) {
			writeError(w, dto.Forbidden("origin not allowed"))
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
