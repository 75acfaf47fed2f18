package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborgate/admin-api/internal/admin"
	"github.com/harborgate/admin-api/internal/auth"
	"github.com/harborgate/admin-api/internal/gotrue"
	"github.com/harborgate/admin-api/internal/gotrue/gotruetest"
	"github.com/harborgate/admin-api/internal/profile/entity"
	"github.com/harborgate/admin-api/internal/router"
)

type fakeProfiles struct {
	admins map[string]bool
	rows   map[string]*entity.Profile
}

func (f *fakeProfiles) IsAdmin(ctx context.Context, id string) (bool, error) {
	if ok, found := f.admins[id]; found {
		return ok, nil
	}
	return false, errors.New("sql: no rows in result set")
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	return p, nil
}

func (f *fakeProfiles) Update(ctx context.Context, id string, u entity.Update) error {
	return nil
}

func newStack(t *testing.T) (*gotruetest.Server, *fakeProfiles, http.Handler) {
	t.Helper()
	backend := gotruetest.NewServer()
	t.Cleanup(backend.Close)
	logger := zap.NewNop().Sugar()
	profiles := &fakeProfiles{admins: map[string]bool{}, rows: map[string]*entity.Profile{}}

	adminClient := gotrue.New(backend.URL, gotruetest.ServiceKey)
	anonClient := gotrue.New(backend.URL, gotruetest.AnonKey)
	mw := auth.NewMiddleware(adminClient, profiles, logger)
	authHandler := auth.NewHandler(anonClient, profiles, logger)
	svc := admin.NewService(adminClient, profiles, logger)
	adminHandler := admin.NewHandler(svc, logger)

	return backend, profiles, router.RegisterRoutes(logger, mw, authHandler, adminHandler)
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, _, h := newStack(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	_, _, h := newStack(t)

	rec := do(h, httptest.NewRequest(http.MethodOptions, "/admin/users", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	_, _, h := newStack(t)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/admin/users"},
		{http.MethodGet, "/admin/users"},
		{http.MethodGet, "/admin/users/some-id"},
		{http.MethodPut, "/admin/users/some-id"},
		{http.MethodDelete, "/admin/users/some-id"},
		{http.MethodGet, "/me"},
	} {
		rec := do(h, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"], "%s %s", tc.method, tc.path)
	}
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	backend, profiles, h := newStack(t)
	caller := backend.Seed("user@x.com", "pw", nil)
	profiles.admins[caller.ID] = false

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+backend.TokenFor(caller.ID))
	rec := do(h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	backend, profiles, h := newStack(t)
	root := backend.Seed("root@x.com", "pw", nil)
	profiles.admins[root.ID] = true
	token := backend.TokenFor(root.ID)

	body := `{"email":"e@x.com","password":"p","full_name":"N","username":"u"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/users", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := do(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.User.ID)

	req = httptest.NewRequest(http.MethodGet, "/admin/users/"+created.User.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = do(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched struct {
		User gotrue.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, "e@x.com", fetched.User.Email)
	assert.Equal(t, "N", fetched.User.UserMetadata["full_name"])
}

func TestRecoverMiddleware(t *testing.T) {
	logger := zap.NewNop().Sugar()
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.RecoverMiddleware(logger)(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"])
}
