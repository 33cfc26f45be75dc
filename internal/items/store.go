// Package items persists work items created from verified webhook events.
package items

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested work item does not exist.
var ErrNotFound = errors.New("work item not found")

// Store is a SQLite-backed work item store.
type Store struct {
	db *sql.DB
}

// New creates a store over an opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new work item and returns it with ID and timestamp set.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*WorkItem, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is empty")
	}
	if req.ProjectKey == "" {
		return nil, fmt.Errorf("project key is empty")
	}
	if req.Type == "" {
		req.Type = TypeTask
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}

	item := &WorkItem{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		ProjectKey:  req.ProjectKey,
		Metadata:    req.Metadata,
		CreatedAt:   time.Now().UTC(),
	}

	var metadata any
	if len(item.Metadata) > 0 {
		data, err := json.Marshal(item.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO work_items(id, title, description, type, priority, project_key, metadata, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`, item.ID, item.Title, item.Description, item.Type, item.Priority, item.ProjectKey,
		metadata, item.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert work item: %w", err)
	}
	return item, nil
}

// Get returns a work item by ID.
func (s *Store) Get(ctx context.Context, id string) (*WorkItem, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, description, type, priority, project_key, metadata, created_at
FROM work_items WHERE id = ?;
`, id)
	return scanWorkItem(row)
}

// ListByProject returns work items for a project, newest first.
func (s *Store) ListByProject(ctx context.Context, projectKey string, limit int) ([]*WorkItem, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, description, type, priority, project_key, metadata, created_at
FROM work_items WHERE project_key = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?;
`, projectKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var out []*WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work items: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(row rowScanner) (*WorkItem, error) {
	var item WorkItem
	var description, metadata sql.NullString
	var createdAt string

	err := row.Scan(&item.ID, &item.Title, &description, &item.Type, &item.Priority,
		&item.ProjectKey, &metadata, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan work item: %w", err)
	}

	item.Description = description.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &item.Metadata); err != nil {
			return nil, fmt.Errorf("parse work item metadata: %w", err)
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse work item timestamp: %w", err)
	}
	item.CreatedAt = ts

	return &item, nil
}
