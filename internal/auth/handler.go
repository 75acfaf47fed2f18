package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/harborgate/admin-api/internal/gotrue"
	"github.com/harborgate/admin-api/internal/profile/entity"
)

// ProfileReader fetches a full profile row for /me.
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
}

// Handler exposes the unguarded login endpoint and the caller-info endpoint.
type Handler struct {
	anon     *gotrue.Client
	profiles ProfileReader
	logger   *zap.SugaredLogger
}

func NewHandler(anon *gotrue.Client, profiles ProfileReader, logger *zap.SugaredLogger) *Handler {
	return &Handler{anon: anon, profiles: profiles, logger: logger}
}

// LoginRequest is the password sign-in payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	session, err := h.anon.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *gotrue.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadRequest, apiErr.Message)
			return
		}
		h.logger.Errorw("sign in failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"access_token": session.AccessToken,
		"user":         session.User,
	})
}

// Me returns the caller's identity together with its profile row. A profile
// lookup failure is logged and leaves profile null, matching the tolerant
// behavior of the admin UI this serves.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing authorization header")
		return
	}

	var prof *entity.Profile
	p, err := h.profiles.GetByID(r.Context(), user.ID)
	if err != nil {
		h.logger.Debugw("profile lookup failed", "user_id", user.ID, "err", err)
	} else {
		prof = p
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":      user.ID,
			"email":   user.Email,
			"profile": prof,
		},
	})
}
