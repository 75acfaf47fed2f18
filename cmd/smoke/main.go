// Binary smoke exercises a running admin API end to end: health, admin
// login, then a full user lifecycle (create, list, get, partial update,
// delete, duplicate delete). It stops at the first failed step and exits
// non-zero.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

var (
	baseURL  = flag.String("url", "http://localhost:3001", "base URL of the admin API")
	email    = flag.String("email", "admin@example.com", "admin email for login")
	password = flag.String("password", "admin123", "admin password for login")
)

func call(method, path, token string, body any) (int, map[string]any, error) {
	var rd *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(buf)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, *baseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, out, nil
}

func step(name string, ok bool, detail any) {
	mark := "PASS"
	if !ok {
		mark = "FAIL"
	}
	fmt.Printf("[%s] %-28s %v\n", mark, name, detail)
	if !ok {
		os.Exit(1)
	}
}

func main() {
	flag.Parse()

	status, body, err := call(http.MethodGet, "/health", "", nil)
	step("health", err == nil && status == 200, body)

	status, body, err = call(http.MethodPost, "/auth/login", "", map[string]string{
		"email": *email, "password": *password,
	})
	step("login", err == nil && status == 200, body["success"])
	token, _ := body["access_token"].(string)
	step("login token present", token != "", "")

	// fresh email per run so create never collides
	newEmail := fmt.Sprintf("smoke-%d@example.com", time.Now().UnixNano())
	status, body, err = call(http.MethodPost, "/admin/users", token, map[string]any{
		"email":     newEmail,
		"password":  "smoke-pass-1",
		"full_name": "Smoke Test",
		"username":  fmt.Sprintf("smoke-%d", time.Now().UnixNano()),
	})
	step("create user", err == nil && status == 200, body)
	created, _ := body["user"].(map[string]any)
	userID, _ := created["id"].(string)
	step("created id present", userID != "", userID)

	status, body, err = call(http.MethodGet, "/admin/users", token, nil)
	users, _ := body["users"].([]any)
	found := false
	for _, u := range users {
		if m, ok := u.(map[string]any); ok && m["id"] == userID {
			found = true
		}
	}
	step("list includes new user", err == nil && status == 200 && found, len(users))

	status, body, err = call(http.MethodGet, "/admin/users/"+userID, token, nil)
	step("get user", err == nil && status == 200, body["success"])

	status, body, err = call(http.MethodPut, "/admin/users/"+userID, token, map[string]any{
		"password": "smoke-pass-2",
	})
	user, _ := body["user"].(map[string]any)
	step("password-only update keeps email", err == nil && status == 200 && user["email"] == newEmail, user["email"])

	status, body, err = call(http.MethodDelete, "/admin/users/"+userID, token, nil)
	step("delete user", err == nil && status == 200, body["message"])

	status, body, err = call(http.MethodDelete, "/admin/users/"+userID, token, nil)
	step("second delete rejected", err == nil && status == 400, body["error"])

	fmt.Println("all steps passed")
}
