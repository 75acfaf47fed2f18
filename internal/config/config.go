// Package config holds process-wide settings for the admin gateway,
// read once from the environment at startup.
package config

import "os"

// Config holds runtime settings for the admin gateway.
//
// Fields:
//   - BackendURL: base URL of the auth backend (no trailing slash).
//   - ServiceRoleKey: privileged key for admin API calls and profile access.
//   - AnonKey: public key used only for the password sign-in grant.
//   - Port: HTTP listen port for the admin API server.
type Config struct {
	BackendURL     string
	ServiceRoleKey string
	AnonKey        string
	Port           string
}

// FromEnv builds a Config from environment variables, applying local
// development defaults where a variable is unset.
func FromEnv() Config {
	cfg := Config{
		BackendURL:     os.Getenv("BACKEND_URL"),
		ServiceRoleKey: os.Getenv("SERVICE_ROLE_KEY"),
		AnonKey:        os.Getenv("ANON_KEY"),
		Port:           os.Getenv("PORT"),
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = "http://localhost:9999"
	}
	if cfg.Port == "" {
		cfg.Port = "3001"
	}
	return cfg
}
