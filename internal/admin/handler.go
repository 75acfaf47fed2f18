package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/harborgate/admin-api/internal/gotrue"
)

// Handler exposes the admin user CRUD endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the create-user body. Pointer fields keep "absent"
// distinct from an explicit zero value.
type CreateRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	FullName *string        `json:"full_name"`
	Username *string        `json:"username"`
	Metadata map[string]any `json:"metadata"`
	IsAdmin  *bool          `json:"is_admin"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.svc.CreateUser(r.Context(), CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Username: req.Username,
		Metadata: req.Metadata,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		h.backendError(w, "create user", err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt,
		},
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.backendError(w, "list users", err, http.StatusBadRequest)
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":              u.ID,
			"email":           u.Email,
			"created_at":      u.CreatedAt,
			"last_sign_in_at": u.LastSignInAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// UpdateRequest is the partial identity update body.
type UpdateRequest struct {
	Email        *string        `json:"email"`
	Password     *string        `json:"password"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := gotrue.UpdateUserParams{
		Email:    req.Email,
		Password: req.Password,
	}
	// a present-but-empty object is a write ("clear metadata"), only a
	// genuinely absent field stays off the wire
	if req.UserMetadata != nil {
		params.UserMetadata = &req.UserMetadata
	}
	user, err := h.svc.UpdateUser(r.Context(), r.PathValue("id"), params)
	if err != nil {
		h.backendError(w, "update user", err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		h.backendError(w, "delete user", err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User deleted successfully",
	})
}

// backendError surfaces the backend's own message with the given status; an
// unexpected failure stays server-side and becomes a generic 500.
func (h *Handler) backendError(w http.ResponseWriter, op string, err error, status int) {
	var apiErr *gotrue.APIError
	if errors.As(err, &apiErr) {
		writeError(w, status, apiErr.Message)
		return
	}
	h.logger.Errorw(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
