// Package auth gates routes behind the external backend: bearer tokens are
// verified by delegation on every request, and admin access is decided by a
// profiles lookup that fails closed.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/harborgate/admin-api/internal/gotrue"
)

// AdminChecker reports whether an identity id carries the admin flag.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// Middleware holds the collaborators shared by RequireUser and RequireAdmin.
type Middleware struct {
	backend  *gotrue.Client
	profiles AdminChecker
	logger   *zap.SugaredLogger
}

func NewMiddleware(backend *gotrue.Client, profiles AdminChecker, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{backend: backend, profiles: profiles, logger: logger}
}

// RequireUser resolves the Authorization bearer token to an identity via
// one backend round trip and attaches it to the request context. Any
// failure, including the network call itself, is a 401.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		token := strings.TrimPrefix(h, "Bearer ")

		user, err := m.backend.GetUser(r.Context(), token)
		if err != nil {
			m.logger.Debugw("token verification failed", "err", err)
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin runs after RequireUser and checks the caller's profile admin
// flag. A missing profile row or a query failure reads as not-admin.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		isAdmin, err := m.profiles.IsAdmin(r.Context(), user.ID)
		if err != nil {
			m.logger.Debugw("admin lookup failed", "user_id", user.ID, "err", err)
		}
		if err != nil || !isAdmin {
			writeError(w, http.StatusForbidden, "Forbidden: Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
