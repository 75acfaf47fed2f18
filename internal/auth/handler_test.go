package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborgate/admin-api/internal/auth"
	"github.com/harborgate/admin-api/internal/gotrue"
	"github.com/harborgate/admin-api/internal/gotrue/gotruetest"
	"github.com/harborgate/admin-api/internal/profile/entity"
)

type fakeProfileReader struct {
	rows map[string]*entity.Profile
	err  error
}

func (f *fakeProfileReader) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	return p, nil
}

func newAuthHandler(t *testing.T, profiles auth.ProfileReader) (*gotruetest.Server, *auth.Handler) {
	t.Helper()
	srv := gotruetest.NewServer()
	t.Cleanup(srv.Close)
	anon := gotrue.New(srv.URL, gotruetest.AnonKey)
	return srv, auth.NewHandler(anon, profiles, zap.NewNop().Sugar())
}

func TestLogin_MissingFields(t *testing.T) {
	_, h := newAuthHandler(t, &fakeProfileReader{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email and password required", decodeBody(t, rec)["error"])
}

func TestLogin_WrongPassword(t *testing.T) {
	srv, h := newAuthHandler(t, &fakeProfileReader{})
	srv.Seed("a@x.com", "right", nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Invalid login credentials", body["error"])
	assert.NotContains(t, body, "access_token")
	assert.NotContains(t, body, "success")
}

func TestLogin_Success(t *testing.T) {
	srv, h := newAuthHandler(t, &fakeProfileReader{})
	u := srv.Seed("a@x.com", "right", nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"right"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["access_token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, u.ID, user["id"])
}

func TestMe(t *testing.T) {
	uname := "al"
	profiles := &fakeProfileReader{rows: map[string]*entity.Profile{}}
	srv, h := newAuthHandler(t, profiles)
	u := srv.Seed("a@x.com", "pw", nil)
	profiles.rows[u.ID] = &entity.Profile{ID: u.ID, Username: &uname, IsAdmin: true}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &u))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.Equal(t, u.ID, user["id"])
	assert.Equal(t, "a@x.com", user["email"])
	prof, ok := user["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "al", prof["username"])
	assert.Equal(t, true, prof["is_admin"])
}

func TestMe_ProfileLookupFailure(t *testing.T) {
	profiles := &fakeProfileReader{err: errors.New("connection refused")}
	srv, h := newAuthHandler(t, profiles)
	u := srv.Seed("a@x.com", "pw", nil)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &u))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	// lookup failures are tolerated: identity still comes back, profile null
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	assert.Nil(t, user["profile"])
}
