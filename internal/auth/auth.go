package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Rejection reasons form a closed set. Every one maps to HTTP 401 with a
// generic body; the specific reason is only ever logged server-side.
var (
	ErrMissing          = errors.New("token missing")
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrRevoked          = errors.New("token revoked")
)

// Identity describes an authenticated caller. It is request-scoped: attached
// to the request context on success and discarded at request end.
type Identity struct {
	Subject    string
	ProjectKey string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Scopes     map[string]struct{}
}

type identityKey struct{}

// WithIdentity attaches an authenticated identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ExtractBearerToken pulls the token from an Authorization: Bearer header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissing
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMalformed
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMissing
	}
	return token, nil
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// TokenHint returns a short non-sensitive form of a token for diagnostics.
// Tokens are credentials and must never be logged in full.
func TokenHint(token string) string {
	if len(token) <= 6 {
		return "******"
	}
	return token[:6] + "..."
}

// HasAnyScope reports whether the identity holds any of the required scopes.
// The wildcard scope "*" grants everything.
func HasAnyScope(id Identity, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if _, ok := id.Scopes["*"]; ok {
		return true
	}
	for _, s := range required {
		if _, ok := id.Scopes[s]; ok {
			return true
		}
	}
	return false
}

func normalizeScopes(scopes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}

	// Write implies read for well-known resources.
	if _, ok := out["items:rw"]; ok {
		out["items:ro"] = struct{}{}
	}
	if _, ok := out["secrets:rw"]; ok {
		out["secrets:ro"] = struct{}{}
	}
	return out
}
