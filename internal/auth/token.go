package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// signedTokenPrefix marks a self-describing signed token:
//
//	tg1.<base64url(claims JSON)>.<hex HMAC-SHA256>
//
// The MAC covers "tg1." plus the encoded claims and is keyed with the
// configured signing key.
const signedTokenPrefix = "tg1."

// Claims is the signed token payload.
type Claims struct {
	Subject    string   `json:"sub"`
	ProjectKey string   `json:"project,omitempty"`
	IssuedAt   int64    `json:"iat"`
	ExpiresAt  int64    `json:"exp"`
	Scopes     []string `json:"scopes,omitempty"`
}

// SignToken mints a signed token for the given claims. Used by admin tooling
// and tests; the gateway itself only verifies.
func SignToken(claims Claims, signingKey string) (string, error) {
	if signingKey == "" {
		return "", fmt.Errorf("signing key is empty")
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	mac := computeTokenMAC(encoded, signingKey)
	return signedTokenPrefix + encoded + "." + mac, nil
}

// parseSignedToken verifies structure, integrity and expiry of a signed
// token. Any structural defect is ErrMalformed; a MAC mismatch is
// ErrSignatureInvalid; a valid but stale token is ErrExpired.
func parseSignedToken(token, signingKey string, now time.Time) (Identity, error) {
	rest := strings.TrimPrefix(token, signedTokenPrefix)
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, ErrMalformed
	}
	encoded, providedMAC := parts[0], parts[1]

	if signingKey == "" {
		// No verification key configured: no signed token can be valid.
		return Identity{}, ErrSignatureInvalid
	}

	expectedMAC := computeTokenMAC(encoded, signingKey)
	if subtle.ConstantTimeCompare([]byte(expectedMAC), []byte(providedMAC)) != 1 {
		return Identity{}, ErrSignatureInvalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Identity{}, ErrMalformed
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Identity{}, ErrMalformed
	}
	if claims.Subject == "" || claims.ExpiresAt == 0 {
		return Identity{}, ErrMalformed
	}

	expiresAt := time.Unix(claims.ExpiresAt, 0)
	if !now.Before(expiresAt) {
		return Identity{}, ErrExpired
	}

	return Identity{
		Subject:    claims.Subject,
		ProjectKey: claims.ProjectKey,
		IssuedAt:   time.Unix(claims.IssuedAt, 0),
		ExpiresAt:  expiresAt,
		Scopes:     normalizeScopes(claims.Scopes),
	}, nil
}

func computeTokenMAC(encodedClaims, signingKey string) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(signedTokenPrefix + encodedClaims))
	return hex.EncodeToString(mac.Sum(nil))
}
