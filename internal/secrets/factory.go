package secrets

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/trellishq/trellis-gw/internal/config"
)

// Resolver is the composed secret store used by the webhook gate: a backend
// wrapped in a TTL cache and a lookup timeout, with rotation support.
type Resolver struct {
	store   Store
	caching *CachingStore
	cache   Cache
	sqlite  *SQLStore
}

// NewResolver builds the secret resolution chain from configuration.
// In dev mode the whole chain is replaced by the fixed-secret store.
func NewResolver(cfg config.SecretsConfig, devMode config.DevModeConfig, db *sql.DB, logger *slog.Logger) (*Resolver, error) {
	if devMode.Enabled {
		logger.Warn("dev mode enabled: webhook secrets resolve to the fixed dev secret")
		return &Resolver{store: NewDevStore(devMode.FixedSecret, logger)}, nil
	}

	var backend Store
	var sqlite *SQLStore
	switch cfg.Backend {
	case "static":
		backend = NewStaticStore(cfg.Static)
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite secrets backend requires an open database")
		}
		sqlite = NewSQLStore(db)
		backend = sqlite
	case "remote":
		backend = NewRemoteStore(cfg.Remote.BaseURL, cfg.Remote.Token, logger)
	default:
		return nil, fmt.Errorf("unknown secrets backend: %s", cfg.Backend)
	}

	cache, err := NewCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	ttl := cfg.Cache.TTL
	if ttl <= 0 && devMode.SecretExpiryMinutes > 0 {
		ttl = time.Duration(devMode.SecretExpiryMinutes) * time.Minute
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	caching := NewCachingStore(backend, cache, ttl, logger)

	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Resolver{
		store:   WithTimeout(caching, timeout),
		caching: caching,
		cache:   cache,
		sqlite:  sqlite,
	}, nil
}

func (r *Resolver) Resolve(ctx context.Context, projectKey, source string) (string, error) {
	return r.store.Resolve(ctx, projectKey, source)
}

// Invalidate drops any cached secret for the pair.
func (r *Resolver) Invalidate(ctx context.Context, projectKey, source string) error {
	if r.caching == nil {
		return nil
	}
	return r.caching.Invalidate(ctx, projectKey, source)
}

// Rotate stores a new secret and invalidates the cache entry. Only supported
// on the sqlite backend; other backends rotate out of band and only need
// Invalidate.
func (r *Resolver) Rotate(ctx context.Context, projectKey, source, secret string) error {
	if r.sqlite == nil {
		return fmt.Errorf("secret rotation requires the sqlite backend")
	}
	if err := r.sqlite.Put(ctx, projectKey, source, secret); err != nil {
		return err
	}
	return r.Invalidate(ctx, projectKey, source)
}

// Close releases cache resources.
func (r *Resolver) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}
