package auth

import (
	"context"

	"github.com/harborgate/admin-api/internal/gotrue"
)

type contextKey string

const userContextKey contextKey = "adminapi_user"

// WithUser attaches the resolved caller identity to the request context.
func WithUser(ctx context.Context, u *gotrue.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the caller identity attached by RequireUser.
func UserFromContext(ctx context.Context) (*gotrue.User, bool) {
	u, ok := ctx.Value(userContextKey).(*gotrue.User)
	return u, ok
}
