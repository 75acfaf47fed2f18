package gotrue

import (
	"encoding/json"
	"fmt"
	"time"
)

// User is the backend's authoritative identity record as returned by the
// token-verification and admin endpoints.
type User struct {
	ID               string         `json:"id"`
	Aud              string         `json:"aud,omitempty"`
	Role             string         `json:"role,omitempty"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Session is the result of a successful password grant.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         User   `json:"user"`
}

// CreateUserParams is the admin create-user request body.
type CreateUserParams struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// UpdateUserParams is the admin update-user request body. Nil fields are
// omitted from the wire so the backend leaves them untouched. UserMetadata
// is a pointer to a map so that a present-but-empty object still goes out
// and clears the stored metadata.
type UpdateUserParams struct {
	Email        *string         `json:"email,omitempty"`
	Password     *string         `json:"password,omitempty"`
	UserMetadata *map[string]any `json:"user_metadata,omitempty"`
}

// APIError carries the backend's HTTP status and its own error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %d %s", e.Status, e.Message)
}

// errorBody covers the message field variants the backend uses across
// endpoint generations.
type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorField       string `json:"error"`
}

func parseAPIError(status int, body []byte) *APIError {
	var eb errorBody
	msg := ""
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Msg != "":
			msg = eb.Msg
		case eb.Message != "":
			msg = eb.Message
		case eb.ErrorDescription != "":
			msg = eb.ErrorDescription
		case eb.ErrorField != "":
			msg = eb.ErrorField
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &APIError{Status: status, Message: msg}
}
