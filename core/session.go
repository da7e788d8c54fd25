package core

import "time"

// SessionConfig controls bearer session lifetime. Sessions are not
// extended on use; Refresh issues a new token with a full MaxAge.
type SessionConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

// CreateSessionResult carries the raw token, which is never stored.
type CreateSessionResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{MaxAge: 24 * time.Hour}
}
