// Package admin implements the user-management operations: each one is a
// forward to the backend admin API, with profile writes layered on where
// the request touches gateway-owned fields.
package admin

import (
	"context"

	"go.uber.org/zap"

	"github.com/harborgate/admin-api/internal/gotrue"
	"github.com/harborgate/admin-api/internal/profile/entity"
)

// ProfileStore writes gateway-owned profile fields.
type ProfileStore interface {
	Update(ctx context.Context, id string, u entity.Update) error
}

// ProfileUpdateError marks a failure writing profile fields, so transports
// can report it as a client-visible rejection rather than a server fault.
type ProfileUpdateError struct {
	Err error
}

func (e *ProfileUpdateError) Error() string { return e.Err.Error() }
func (e *ProfileUpdateError) Unwrap() error { return e.Err }

// Service orchestrates backend admin calls and profile updates. Multi-step
// operations apply sequentially with no rollback of earlier steps.
type Service struct {
	backend  *gotrue.Client
	profiles ProfileStore
	logger   *zap.SugaredLogger
}

func NewService(backend *gotrue.Client, profiles ProfileStore, logger *zap.SugaredLogger) *Service {
	return &Service{backend: backend, profiles: profiles, logger: logger}
}

// CreateUserRequest carries the create-user payload. Pointer fields
// distinguish absent from explicit zero values.
type CreateUserRequest struct {
	Email    string
	Password string
	FullName *string
	Username *string
	Metadata map[string]any
	IsAdmin  *bool
}

// CreateUser creates the identity with its email pre-confirmed, then
// updates the profile row when username or is_admin was supplied. A profile
// update failure is logged, not fatal: the identity already exists and the
// caller gets it back.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*gotrue.User, error) {
	meta := map[string]any{"full_name": ""}
	if req.FullName != nil {
		meta["full_name"] = *req.FullName
	}
	for k, v := range req.Metadata {
		meta[k] = v
	}

	user, err := s.backend.CreateUser(ctx, gotrue.CreateUserParams{
		Email:        req.Email,
		Password:     req.Password,
		EmailConfirm: true,
		UserMetadata: meta,
	})
	if err != nil {
		return nil, err
	}

	if req.Username != nil || req.IsAdmin != nil {
		upd := entity.Update{Username: req.Username, IsAdmin: req.IsAdmin}
		if err := s.profiles.Update(ctx, user.ID, upd); err != nil {
			s.logger.Errorw("profile update after create failed", "user_id", user.ID, "err", err)
		}
	}
	return user, nil
}

// ListUsers forwards to the backend's bulk listing.
func (s *Service) ListUsers(ctx context.Context) ([]gotrue.User, error) {
	return s.backend.ListUsers(ctx)
}

// GetUser forwards a single-user fetch.
func (s *Service) GetUser(ctx context.Context, id string) (*gotrue.User, error) {
	return s.backend.GetUserByID(ctx, id)
}

// UpdateUser forwards a partial identity update.
func (s *Service) UpdateUser(ctx context.Context, id string, p gotrue.UpdateUserParams) (*gotrue.User, error) {
	return s.backend.UpdateUserByID(ctx, id, p)
}

// DeleteUser forwards a hard delete.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.backend.DeleteUser(ctx, id)
}

// FullUpdateRequest is the folded update payload: identity fields, metadata
// and profile fields in one call.
type FullUpdateRequest struct {
	UserID   string
	Email    *string
	Password *string
	FullName *string
	Username *string
	Metadata map[string]any
	IsAdmin  *bool
}

// FullUpdate executes up to three sequential backend calls: identity
// fields, user metadata, then profile fields. Each step runs only when its
// inputs are present; the first failure aborts the request with no
// compensation of the steps already applied. On success the user is
// re-fetched so the caller sees the merged result.
func (s *Service) FullUpdate(ctx context.Context, req FullUpdateRequest) (*gotrue.User, error) {
	if req.Email != nil || req.Password != nil {
		p := gotrue.UpdateUserParams{Email: req.Email, Password: req.Password}
		if _, err := s.backend.UpdateUserByID(ctx, req.UserID, p); err != nil {
			return nil, err
		}
	}

	if req.FullName != nil || req.Metadata != nil {
		meta := map[string]any{}
		if req.FullName != nil {
			meta["full_name"] = *req.FullName
		}
		for k, v := range req.Metadata {
			meta[k] = v
		}
		p := gotrue.UpdateUserParams{UserMetadata: &meta}
		if _, err := s.backend.UpdateUserByID(ctx, req.UserID, p); err != nil {
			return nil, err
		}
	}

	if req.Username != nil || req.IsAdmin != nil || req.FullName != nil {
		upd := entity.Update{Username: req.Username, FullName: req.FullName, IsAdmin: req.IsAdmin}
		if err := s.profiles.Update(ctx, req.UserID, upd); err != nil {
			return nil, &ProfileUpdateError{Err: err}
		}
	}

	return s.backend.GetUserByID(ctx, req.UserID)
}
