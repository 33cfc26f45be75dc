// Package secrets resolves per-(project, source) webhook signing secrets.
//
// A Store is composed at startup from a backend (static config, SQLite or a
// remote secret service) plus decorators: a bounded-TTL cache and a lookup
// timeout. Timeouts and backend failures resolve to ErrNotFound so the
// webhook gate fails closed.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound indicates no secret is configured for a (project, source) pair.
// Callers must treat this as a client configuration error, not a server fault.
var ErrNotFound = errors.New("webhook secret not found")

// Store resolves the shared secret for a project/source pair.
type Store interface {
	Resolve(ctx context.Context, projectKey, source string) (string, error)
}

// Key builds the canonical cache/lookup key for a project/source pair.
func Key(projectKey, source string) string {
	return projectKey + ":" + source
}

// StaticStore resolves secrets from an in-memory map loaded at startup.
type StaticStore struct {
	projects map[string]map[string]string
}

// NewStaticStore creates a store over a project -> source -> secret map.
func NewStaticStore(projects map[string]map[string]string) *StaticStore {
	return &StaticStore{projects: projects}
}

func (s *StaticStore) Resolve(ctx context.Context, projectKey, source string) (string, error) {
	if projectKey == "" || source == "" {
		return "", ErrNotFound
	}
	sources, ok := s.projects[projectKey]
	if !ok {
		return "", ErrNotFound
	}
	secret, ok := sources[source]
	if !ok || secret == "" {
		return "", ErrNotFound
	}
	return secret, nil
}

// DevStore always returns the configured fixed secret regardless of inputs.
// This is the documented dev-mode trapdoor; never enable in production.
type DevStore struct {
	fixed  string
	logger *slog.Logger
}

// NewDevStore creates a dev-mode store returning fixed for every lookup.
func NewDevStore(fixed string, logger *slog.Logger) *DevStore {
	return &DevStore{fixed: fixed, logger: logger}
}

func (s *DevStore) Resolve(ctx context.Context, projectKey, source string) (string, error) {
	if projectKey == "" || source == "" {
		return "", ErrNotFound
	}
	s.logger.Warn("dev mode secret lookup bypass in use",
		"project", projectKey,
		"source", source,
	)
	return s.fixed, nil
}

// TimeoutStore bounds each resolution of the wrapped store. A lookup that
// exceeds the deadline resolves to ErrNotFound (fail closed).
type TimeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps next so every Resolve runs under timeout.
func WithTimeout(next Store, timeout time.Duration) *TimeoutStore {
	return &TimeoutStore{next: next, timeout: timeout}
}

func (s *TimeoutStore) Resolve(ctx context.Context, projectKey, source string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	secret, err := s.next.Resolve(tctx, projectKey, source)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("secret lookup timed out: %w", ErrNotFound)
		}
		return "", err
	}
	return secret, nil
}
