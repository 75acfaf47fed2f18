// Package gotrue is a thin HTTP client for the external auth backend. It
// wraps token verification, the password grant, and the privileged admin
// user API. Every method performs exactly one round trip; no retries and no
// caching of verification results.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client calls one backend with one API key. Construct two of them at
// startup: a service-role client for admin calls and profile-gated routes,
// and an anon client for the password grant.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{baseURL: baseURL, apiKey: apiKey, http: http.DefaultClient}
}

// do performs one request against the backend. bearer overrides the API key
// as the Authorization credential when non-empty (used for verifying a
// caller's token). A non-2xx response becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// GetUser resolves a caller's access token to its identity. The backend
// owns verification; an invalid or expired token comes back as *APIError.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignInWithPassword exchanges email+password for a session via the
// password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateUser creates an identity through the admin API. Requires the
// service-role key.
func (c *Client) CreateUser(ctx context.Context, p CreateUserParams) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", "", p, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns the backend's bulk user listing.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// GetUserByID fetches one identity by id.
func (c *Client) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users/"+url.PathEscape(id), "", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserByID applies a partial update to an identity. Only fields set
// in p are sent.
func (c *Client) UpdateUserByID(ctx context.Context, id string, p UpdateUserParams) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(id), "", p, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser hard-deletes an identity.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), "", nil, nil)
}
