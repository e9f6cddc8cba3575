package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// authMiddleware enforces basic auth on the explorer endpoints with
// the configured API key as password; the username is ignored. Health
// probes stay open, and the admin surface is gated by its own JWT
// check instead.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	if s.noAuth || s.apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/admin/") {
			next.ServeHTTP(w, r)
			return
		}
		_, pass, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(pass), []byte(s.apiKey)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="hnscan"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminAuth gates an admin handler behind a Bearer JWT signed with
// the configured HMAC secret. An empty secret rejects everything, so
// deployments without one simply have no admin surface.
func (s *Server) adminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminSecret == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "admin surface disabled")
			return
		}
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		token, err := jwt.Parse(strings.TrimSpace(header[len(prefix):]), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(s.adminSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next(w, r)
	}
}
