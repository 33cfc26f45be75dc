package dispatch

import (
	"context"

	"github.com/trellishq/trellis-gw/internal/items"
)

// Outcome statuses returned to webhook senders.
const (
	StatusOK      = "ok"
	StatusCreated = "created"
	StatusSkipped = "skipped"
	StatusIgnored = "ignored"
)

// Outcome is the result of handling a verified webhook event.
type Outcome struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Item    *items.WorkItem `json:"work_item,omitempty"`
}

// Handler processes a verified webhook delivery. Implementations are invoked
// only after signature verification succeeds.
type Handler interface {
	Handle(ctx context.Context, eventType string, payload []byte, projectKey string) (*Outcome, error)
}

// ItemCreator is the slice of the work-item layer the dispatcher needs.
type ItemCreator interface {
	Create(ctx context.Context, req items.CreateRequest) (*items.WorkItem, error)
}

// GitHub webhook payload shapes. Only the fields the dispatcher reads.

type githubUser struct {
	Login string `json:"login"`
}

type githubRepository struct {
	FullName string `json:"full_name"`
}

type githubPullRequestEvent struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number  int        `json:"number"`
		Title   string     `json:"title"`
		Body    string     `json:"body"`
		HTMLURL string     `json:"html_url"`
		User    githubUser `json:"user"`
	} `json:"pull_request"`
	Repository githubRepository `json:"repository"`
}

type githubWorkflowRunEvent struct {
	Action      string `json:"action"`
	WorkflowRun struct {
		Name       string `json:"name"`
		HeadBranch string `json:"head_branch"`
		Conclusion string `json:"conclusion"`
		HTMLURL    string `json:"html_url"`
	} `json:"workflow_run"`
	Repository githubRepository `json:"repository"`
}

type githubPushEvent struct {
	Ref     string `json:"ref"`
	Deleted bool   `json:"deleted"`
	Commits []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"commits"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
	Repository githubRepository `json:"repository"`
}

type githubIssuesEvent struct {
	Action string `json:"action"`
	Issue  struct {
		Number  int        `json:"number"`
		Title   string     `json:"title"`
		Body    string     `json:"body"`
		HTMLURL string     `json:"html_url"`
		User    githubUser `json:"user"`
	} `json:"issue"`
	Repository githubRepository `json:"repository"`
}
