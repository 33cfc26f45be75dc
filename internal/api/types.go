package api

import "time"

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// WhoamiResponse is returned by GET /api/v1/auth/whoami.
type WhoamiResponse struct {
	Subject    string     `json:"subject"`
	ProjectKey string     `json:"project_key,omitempty"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// RotateSecretRequest is the JSON body for POST /api/v1/secrets/{project}/{source}/rotate.
// Secret is optional: when omitted the cached value is dropped so the next
// lookup picks up a secret rotated out of band.
type RotateSecretRequest struct {
	Secret string `json:"secret,omitempty"`
}

// RotateSecretResponse is returned on successful rotation or invalidation.
type RotateSecretResponse struct {
	Status     string `json:"status"`
	ProjectKey string `json:"project_key"`
	Source     string `json:"source"`
}
