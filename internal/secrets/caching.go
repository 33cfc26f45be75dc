package secrets

import (
	"context"
	"log/slog"
	"time"
)

// CachingStore decorates a Store with a bounded-TTL cache and an explicit
// rotation invalidation signal. Rotated secrets are honored immediately on
// Invalidate, or within one TTL window otherwise.
type CachingStore struct {
	next   Store
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingStore wraps next with cache. Cache failures are treated as
// misses; they never fail a resolution that the backend can serve.
func NewCachingStore(next Store, cache Cache, ttl time.Duration, logger *slog.Logger) *CachingStore {
	return &CachingStore{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (s *CachingStore) Resolve(ctx context.Context, projectKey, source string) (string, error) {
	key := Key(projectKey, source)

	secret, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Debug("secret cache read failed", "error", err)
	} else if hit {
		return secret, nil
	}

	secret, err = s.next.Resolve(ctx, projectKey, source)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, secret, s.ttl); err != nil {
		s.logger.Debug("secret cache write failed", "error", err)
	}
	return secret, nil
}

// Invalidate drops the cached secret for a project/source pair so the next
// resolution hits the backend. Used when a secret is rotated.
func (s *CachingStore) Invalidate(ctx context.Context, projectKey, source string) error {
	return s.cache.Delete(ctx, Key(projectKey, source))
}
