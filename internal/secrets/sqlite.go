package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore resolves secrets from the webhook_secrets table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over an opened database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Resolve(ctx context.Context, projectKey, source string) (string, error) {
	if projectKey == "" || source == "" {
		return "", ErrNotFound
	}

	var secret string
	err := s.db.QueryRowContext(ctx, `
SELECT secret FROM webhook_secrets WHERE project_key = ? AND source = ?;
`, projectKey, source).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query webhook secret: %w", err)
	}
	if secret == "" {
		return "", ErrNotFound
	}
	return secret, nil
}

// Put stores or replaces the secret for a project/source pair.
func (s *SQLStore) Put(ctx context.Context, projectKey, source, secret string) error {
	if projectKey == "" || source == "" {
		return fmt.Errorf("project key and source are required")
	}
	if secret == "" {
		return fmt.Errorf("secret is empty")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO webhook_secrets(project_key, source, secret, updated_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(project_key, source) DO UPDATE SET secret = excluded.secret, updated_at = excluded.updated_at;
`, projectKey, source, secret, now)
	if err != nil {
		return fmt.Errorf("store webhook secret: %w", err)
	}
	return nil
}
