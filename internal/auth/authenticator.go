package auth

import (
	"log/slog"
	"strings"
	"time"

	"github.com/trellishq/trellis-gw/internal/config"
)

// Authenticator validates bearer tokens against static configuration and the
// signed-token verification key. It holds no mutable state; repeated calls
// with the same token yield the same result until expiry passes.
type Authenticator struct {
	signingKey string
	tokens     []config.TokenConfig
	revoked    []string
	devMode    config.DevModeConfig
	logger     *slog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewAuthenticator creates an authenticator from configuration.
func NewAuthenticator(cfg config.AuthConfig, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		signingKey: cfg.SigningKey,
		tokens:     cfg.Tokens,
		revoked:    cfg.Revoked,
		devMode:    cfg.DevMode,
		logger:     logger,
		now:        time.Now,
	}
}

// Authenticate validates a bearer token and returns the caller's identity.
// On failure it returns one of ErrMissing, ErrMalformed, ErrExpired,
// ErrSignatureInvalid or ErrRevoked, never a partial identity.
func (a *Authenticator) Authenticate(token string) (Identity, error) {
	if a.devMode.Enabled {
		// Documented trapdoor for local testing only. Any token, or none,
		// is granted the fixed dev identity.
		a.logger.Warn("dev mode authentication bypass exercised",
			"token_hint", TokenHint(token),
		)
		return a.devIdentity(), nil
	}

	if token == "" {
		return Identity{}, ErrMissing
	}

	if a.isRevoked(token) {
		return Identity{}, ErrRevoked
	}

	if id, ok, err := a.matchStaticToken(token); ok {
		return id, err
	}

	if strings.HasPrefix(token, signedTokenPrefix) {
		return parseSignedToken(token, a.signingKey, a.now())
	}

	return Identity{}, ErrMalformed
}

func (a *Authenticator) isRevoked(token string) bool {
	revoked := false
	for _, r := range a.revoked {
		// Scan the whole list regardless of early matches.
		if constantTimeEqual(token, r) {
			revoked = true
		}
	}
	return revoked
}

func (a *Authenticator) matchStaticToken(token string) (Identity, bool, error) {
	for _, t := range a.tokens {
		if !constantTimeEqual(token, t.Token) {
			continue
		}
		if t.ExpiresAt != nil && !a.now().Before(*t.ExpiresAt) {
			return Identity{}, true, ErrExpired
		}
		id := Identity{
			Subject:    t.Subject,
			ProjectKey: t.ProjectKey,
			Scopes:     normalizeScopes(t.Scopes),
		}
		if t.ExpiresAt != nil {
			id.ExpiresAt = *t.ExpiresAt
		}
		return id, true, nil
	}
	return Identity{}, false, nil
}

func (a *Authenticator) devIdentity() Identity {
	expiry := time.Duration(a.devMode.TokenExpiryMinutes) * time.Minute
	if expiry <= 0 {
		expiry = time.Hour
	}
	now := a.now()
	return Identity{
		Subject:    "dev-user",
		ProjectKey: "dev-project",
		IssuedAt:   now,
		ExpiresAt:  now.Add(expiry),
		Scopes:     map[string]struct{}{"*": {}},
	}
}
