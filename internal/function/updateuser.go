// Package function adapts the folded update-user operation to a
// function-per-request deployment target. The handler is self-contained:
// permissive CORS, preflight, inline auth and admin checks, then the shared
// admin service.
package function

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/harborgate/admin-api/internal/admin"
	"github.com/harborgate/admin-api/internal/auth"
	"github.com/harborgate/admin-api/internal/gotrue"
)

// UpdateUserHandler serves the admin-update-user function surface.
type UpdateUserHandler struct {
	backend  *gotrue.Client
	profiles auth.AdminChecker
	svc      *admin.Service
	logger   *zap.SugaredLogger
}

func NewUpdateUserHandler(backend *gotrue.Client, profiles auth.AdminChecker, svc *admin.Service, logger *zap.SugaredLogger) *UpdateUserHandler {
	return &UpdateUserHandler{backend: backend, profiles: profiles, svc: svc, logger: logger}
}

// updateUserRequest is the function body; user_id is the only required
// field, everything else is applied only when present.
type updateUserRequest struct {
	UserID   string         `json:"user_id"`
	Email    *string        `json:"email"`
	Password *string        `json:"password"`
	FullName *string        `json:"full_name"`
	Username *string        `json:"username"`
	Metadata map[string]any `json:"metadata"`
	IsAdmin  *bool          `json:"is_admin"`
}

func (h *UpdateUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		h.writeError(w, http.StatusUnauthorized, "Missing authorization header")
		return
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	user, err := h.backend.GetUser(r.Context(), token)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	isAdmin, err := h.profiles.IsAdmin(r.Context(), user.ID)
	if err != nil || !isAdmin {
		h.writeError(w, http.StatusForbidden, "Forbidden: Admin access required")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	updated, err := h.svc.FullUpdate(r.Context(), admin.FullUpdateRequest{
		UserID:   req.UserID,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Username: req.Username,
		Metadata: req.Metadata,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		var apiErr *gotrue.APIError
		if errors.As(err, &apiErr) {
			h.writeError(w, http.StatusBadRequest, apiErr.Message)
			return
		}
		var profErr *admin.ProfileUpdateError
		if errors.As(err, &profErr) {
			h.writeError(w, http.StatusBadRequest, profErr.Error())
			return
		}
		h.logger.Errorw("full update failed", "user_id", req.UserID, "err", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":            updated.ID,
			"email":         updated.Email,
			"user_metadata": updated.UserMetadata,
			"updated_at":    updated.UpdatedAt,
		},
	})
}

func (h *UpdateUserHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *UpdateUserHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
