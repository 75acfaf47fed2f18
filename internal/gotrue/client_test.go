package gotrue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborgate/admin-api/internal/gotrue"
	"github.com/harborgate/admin-api/internal/gotrue/gotruetest"
)

func newClients(t *testing.T) (*gotruetest.Server, *gotrue.Client, *gotrue.Client) {
	t.Helper()
	srv := gotruetest.NewServer()
	t.Cleanup(srv.Close)
	admin := gotrue.New(srv.URL, gotruetest.ServiceKey)
	anon := gotrue.New(srv.URL, gotruetest.AnonKey)
	return srv, admin, anon
}

func TestSignInWithPassword(t *testing.T) {
	srv, _, anon := newClients(t)
	u := srv.Seed("alice@example.com", "s3cret", nil)

	session, err := anon.SignInWithPassword(context.Background(), "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, u.ID, session.User.ID)
	assert.Equal(t, "alice@example.com", session.User.Email)
}

func TestSignInWithPassword_WrongPassword(t *testing.T) {
	srv, _, anon := newClients(t)
	srv.Seed("alice@example.com", "s3cret", nil)

	session, err := anon.SignInWithPassword(context.Background(), "alice@example.com", "nope")
	require.Error(t, err)
	assert.Nil(t, session)

	var apiErr *gotrue.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestGetUser(t *testing.T) {
	srv, admin, _ := newClients(t)
	u := srv.Seed("bob@example.com", "pw", map[string]any{"full_name": "Bob"})

	got, err := admin.GetUser(context.Background(), srv.TokenFor(u.ID))
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Bob", got.UserMetadata["full_name"])
}

func TestGetUser_InvalidToken(t *testing.T) {
	_, admin, _ := newClients(t)

	got, err := admin.GetUser(context.Background(), "not-a-jwt")
	require.Error(t, err)
	assert.Nil(t, got)

	var apiErr *gotrue.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Status)
}

func TestAdminUserLifecycle(t *testing.T) {
	_, admin, _ := newClients(t)
	ctx := context.Background()

	created, err := admin.CreateUser(ctx, gotrue.CreateUserParams{
		Email:        "carol@example.com",
		Password:     "pw",
		EmailConfirm: true,
		UserMetadata: map[string]any{"full_name": "Carol"},
	})
	require.NoError(t, err)
	require.NotNil(t, created.EmailConfirmedAt)

	got, err := admin.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", got.Email)

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, created.ID, users[0].ID)

	// password-only update leaves email and metadata alone
	pw := "pw2"
	updated, err := admin.UpdateUserByID(ctx, created.ID, gotrue.UpdateUserParams{Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", updated.Email)
	assert.Equal(t, "Carol", updated.UserMetadata["full_name"])

	require.NoError(t, admin.DeleteUser(ctx, created.ID))

	err = admin.DeleteUser(ctx, created.ID)
	var apiErr *gotrue.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, "User not found", apiErr.Message)
}

func TestUpdateUserByID_EmptyMetadataClears(t *testing.T) {
	srv, admin, _ := newClients(t)
	u := srv.Seed("meta@example.com", "pw", map[string]any{"full_name": "Meta"})

	// an explicit empty object is a write, not an omission
	empty := map[string]any{}
	updated, err := admin.UpdateUserByID(context.Background(), u.ID, gotrue.UpdateUserParams{UserMetadata: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.UserMetadata)

	stored, ok := srv.User(u.ID)
	require.True(t, ok)
	assert.Empty(t, stored.UserMetadata)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	srv, admin, _ := newClients(t)
	srv.Seed("dup@example.com", "pw", nil)

	_, err := admin.CreateUser(context.Background(), gotrue.CreateUserParams{
		Email: "dup@example.com", Password: "pw",
	})
	var apiErr *gotrue.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 422, apiErr.Status)
	assert.Contains(t, apiErr.Message, "already been registered")
}

func TestAdminEndpointsRejectWrongKey(t *testing.T) {
	_, _, anon := newClients(t)

	_, err := anon.ListUsers(context.Background())
	var apiErr *gotrue.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Status)
}
