// Package gotruetest provides an in-memory stand-in for the auth backend so
// handler and client tests can run against real HTTP round trips. It issues
// HS256 tokens and stores bcrypt password hashes the way the real backend
// does, but keeps everything in a map.
package gotruetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/harborgate/admin-api/internal/gotrue"
)

const (
	// ServiceKey and AnonKey are the fixed API keys the fake accepts.
	ServiceKey = "service-role-test-key"
	AnonKey    = "anon-test-key"
)

type userRecord struct {
	user         gotrue.User
	passwordHash []byte
}

// Server emulates the auth backend over a httptest.Server.
type Server struct {
	URL string

	secret []byte
	srv    *httptest.Server

	mu    sync.Mutex
	users map[string]*userRecord
}

// NewServer starts the fake backend. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		secret: []byte("gotruetest-secret"),
		users:  make(map[string]*userRecord),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", s.handleToken)
	mux.HandleFunc("GET /auth/v1/user", s.handleGetUser)
	mux.HandleFunc("POST /auth/v1/admin/users", s.requireService(s.handleCreate))
	mux.HandleFunc("GET /auth/v1/admin/users", s.requireService(s.handleList))
	mux.HandleFunc("GET /auth/v1/admin/users/{id}", s.requireService(s.handleGetByID))
	mux.HandleFunc("PUT /auth/v1/admin/users/{id}", s.requireService(s.handleUpdate))
	mux.HandleFunc("DELETE /auth/v1/admin/users/{id}", s.requireService(s.handleDelete))
	s.srv = httptest.NewServer(mux)
	s.URL = s.srv.URL
	return s
}

func (s *Server) Close() { s.srv.Close() }

// Seed registers a user directly, bypassing the HTTP surface.
func (s *Server) Seed(email, password string, meta map[string]any) gotrue.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	u := gotrue.User{
		ID:           uuid.NewString(),
		Aud:          "authenticated",
		Role:         "authenticated",
		Email:        email,
		UserMetadata: meta,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.mu.Lock()
	s.users[u.ID] = &userRecord{user: u, passwordHash: hash}
	s.mu.Unlock()
	return u
}

// TokenFor mints a valid access token for an existing user id.
func (s *Server) TokenFor(id string) string {
	claims := jwt.MapClaims{
		"sub": id,
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// User returns a copy of the stored user, if present.
func (s *Server) User(id string) (gotrue.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return gotrue.User{}, false
	}
	return rec.user, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (s *Server) requireService(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) != ServiceKey {
			writeMsg(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		writeMsg(w, http.StatusBadRequest, "unsupported grant type")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if rec.user.Email != req.Email {
			continue
		}
		if bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(req.Password)) != nil {
			break
		}
		now := time.Now().UTC()
		rec.user.LastSignInAt = &now
		writeJSON(w, http.StatusOK, gotrue.Session{
			AccessToken: s.TokenFor(rec.user.ID),
			TokenType:   "bearer",
			ExpiresIn:   3600,
			User:        rec.user,
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error_description": "Invalid login credentials"})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	tok := bearer(r)
	if tok == "" {
		writeMsg(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		writeMsg(w, http.StatusUnauthorized, "invalid JWT")
		return
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		writeMsg(w, http.StatusUnauthorized, "invalid JWT")
		return
	}
	s.mu.Lock()
	rec, ok := s.users[sub]
	s.mu.Unlock()
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, rec.user)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var p gotrue.CreateUserParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if rec.user.Email == p.Email {
			writeMsg(w, http.StatusUnprocessableEntity, "A user with this email address has already been registered")
			return
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.MinCost)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "hash failure")
		return
	}
	now := time.Now().UTC()
	u := gotrue.User{
		ID:           uuid.NewString(),
		Aud:          "authenticated",
		Role:         "authenticated",
		Email:        p.Email,
		UserMetadata: p.UserMetadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.EmailConfirm {
		u.EmailConfirmedAt = &now
	}
	s.users[u.ID] = &userRecord{user: u, passwordHash: hash}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]gotrue.User, 0, len(s.users))
	for _, rec := range s.users {
		users = append(users, rec.user)
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleGetByID(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rec, ok := s.users[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, rec.user)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var p gotrue.UpdateUserParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[r.PathValue("id")]
	if !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	if p.Email != nil {
		rec.user.Email = *p.Email
	}
	if p.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*p.Password), bcrypt.MinCost)
		if err != nil {
			writeMsg(w, http.StatusInternalServerError, "hash failure")
			return
		}
		rec.passwordHash = hash
	}
	if p.UserMetadata != nil {
		rec.user.UserMetadata = *p.UserMetadata
	}
	rec.user.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, rec.user)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.users[id]; !ok {
		writeMsg(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.users, id)
	writeJSON(w, http.StatusOK, map[string]any{})
}
