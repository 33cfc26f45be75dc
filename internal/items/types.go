package items

import "time"

// Work item types.
const (
	TypeFeature = "FEATURE"
	TypeBug     = "BUG"
	TypeChore   = "CHORE"
	TypeTask    = "TASK"
)

// Work item priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// WorkItem is a tracked unit of work created from a verified event.
type WorkItem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type"`
	Priority    string            `json:"priority"`
	ProjectKey  string            `json:"project_key"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CreateRequest describes a work item to create.
type CreateRequest struct {
	Title       string
	Description string
	Type        string
	Priority    string
	ProjectKey  string
	Metadata    map[string]string
}
