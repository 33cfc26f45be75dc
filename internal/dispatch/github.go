// Package dispatch turns verified webhook deliveries into work items.
//
// The dispatcher runs strictly after signature verification. Deliveries that
// match no creation rule (uninteresting actions, unknown event types, delete
// pushes) are acknowledged as skipped so the sender does not redeliver them.
// Malformed JSON inside a validly signed envelope is also skipped: the
// delivery is authentic, there is just nothing to act on.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/trellishq/trellis-gw/internal/items"
)

// GitHub handles GitHub webhook events.
type GitHub struct {
	creator ItemCreator
	logger  *slog.Logger
}

// NewGitHub creates a GitHub event handler backed by the work-item layer.
func NewGitHub(creator ItemCreator, logger *slog.Logger) *GitHub {
	return &GitHub{creator: creator, logger: logger}
}

// Handle processes a verified GitHub delivery.
func (g *GitHub) Handle(ctx context.Context, eventType string, payload []byte, projectKey string) (*Outcome, error) {
	switch eventType {
	case "ping":
		return &Outcome{Status: StatusOK, Message: "Webhook received successfully"}, nil
	case "pull_request":
		return g.handlePullRequest(ctx, payload, projectKey)
	case "workflow_run":
		return g.handleWorkflowRun(ctx, payload, projectKey)
	case "push":
		return g.handlePush(ctx, payload, projectKey)
	case "issues":
		return g.handleIssues(ctx, payload, projectKey)
	default:
		g.logger.Debug("skipping unsupported event type", "event", eventType, "project", projectKey)
		return &Outcome{Status: StatusSkipped, Message: "Unsupported event type: " + eventType}, nil
	}
}

func (g *GitHub) handlePullRequest(ctx context.Context, payload []byte, projectKey string) (*Outcome, error) {
	var pr githubPullRequestEvent
	if err := json.Unmarshal(payload, &pr); err != nil {
		return g.skipMalformed("pull_request", projectKey, err), nil
	}

	if pr.Action != "opened" && pr.Action != "reopened" {
		return &Outcome{
			Status:  StatusSkipped,
			Message: "Ignoring pull request action: " + pr.Action,
		}, nil
	}

	item, err := g.creator.Create(ctx, items.CreateRequest{
		Title:       "PR: " + pr.PullRequest.Title,
		Description: fmt.Sprintf("%s\n\nPR URL: %s", pr.PullRequest.Body, pr.PullRequest.HTMLURL),
		Type:        items.TypeFeature,
		Priority:    items.PriorityMedium,
		ProjectKey:  projectKey,
		Metadata: map[string]string{
			"source":      "github",
			"github_pr":   fmt.Sprintf("%d", pr.PullRequest.Number),
			"github_user": pr.PullRequest.User.Login,
			"github_repo": pr.Repository.FullName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create work item from pull request: %w", err)
	}

	return &Outcome{Status: StatusCreated, Item: item}, nil
}

func (g *GitHub) handleWorkflowRun(ctx context.Context, payload []byte, projectKey string) (*Outcome, error) {
	var wf githubWorkflowRunEvent
	if err := json.Unmarshal(payload, &wf); err != nil {
		return g.skipMalformed("workflow_run", projectKey, err), nil
	}

	if wf.Action != "completed" || wf.WorkflowRun.Conclusion != "failure" {
		return &Outcome{
			Status:  StatusSkipped,
			Message: "Ignoring non-failed workflow run",
		}, nil
	}

	item, err := g.creator.Create(ctx, items.CreateRequest{
		Title: fmt.Sprintf("CI Failure: %s on %s", wf.WorkflowRun.Name, wf.WorkflowRun.HeadBranch),
		Description: fmt.Sprintf("The CI pipeline '%s' failed on branch '%s'.\n\nWorkflow URL: %s",
			wf.WorkflowRun.Name, wf.WorkflowRun.HeadBranch, wf.WorkflowRun.HTMLURL),
		Type:       items.TypeBug,
		Priority:   items.PriorityHigh,
		ProjectKey: projectKey,
		Metadata: map[string]string{
			"source":        "github_ci",
			"branch":        wf.WorkflowRun.HeadBranch,
			"workflow_name": wf.WorkflowRun.Name,
			"workflow_url":  wf.WorkflowRun.HTMLURL,
			"github_repo":   wf.Repository.FullName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create work item from workflow run: %w", err)
	}

	return &Outcome{Status: StatusCreated, Item: item}, nil
}

func (g *GitHub) handlePush(ctx context.Context, payload []byte, projectKey string) (*Outcome, error) {
	var push githubPushEvent
	if err := json.Unmarshal(payload, &push); err != nil {
		return g.skipMalformed("push", projectKey, err), nil
	}

	if push.Deleted || len(push.Commits) == 0 {
		return &Outcome{
			Status:  StatusSkipped,
			Message: "Skipping delete operation or push with no commits",
		}, nil
	}

	branch := strings.TrimPrefix(push.Ref, "refs/heads/")

	summaries := make([]string, 0, len(push.Commits))
	for _, commit := range push.Commits {
		id := commit.ID
		if len(id) > 8 {
			id = id[:8]
		}
		summaries = append(summaries, fmt.Sprintf("- %s (%s)", commit.Message, id))
	}

	item, err := g.creator.Create(ctx, items.CreateRequest{
		Title: fmt.Sprintf("Push: %d commits to %s", len(push.Commits), branch),
		Description: fmt.Sprintf("Push to %s by %s\n\nCommits:\n%s",
			branch, push.Pusher.Name, strings.Join(summaries, "\n")),
		Type:       items.TypeChore,
		Priority:   items.PriorityLow,
		ProjectKey: projectKey,
		Metadata: map[string]string{
			"source":       "github_push",
			"branch":       branch,
			"pusher":       push.Pusher.Name,
			"commit_count": fmt.Sprintf("%d", len(push.Commits)),
			"github_repo":  push.Repository.FullName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create work item from push: %w", err)
	}

	return &Outcome{Status: StatusCreated, Item: item}, nil
}

func (g *GitHub) handleIssues(ctx context.Context, payload []byte, projectKey string) (*Outcome, error) {
	var ev githubIssuesEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return g.skipMalformed("issues", projectKey, err), nil
	}

	if ev.Action != "opened" && ev.Action != "reopened" {
		return &Outcome{
			Status:  StatusSkipped,
			Message: "Ignoring issues action: " + ev.Action,
		}, nil
	}

	item, err := g.creator.Create(ctx, items.CreateRequest{
		Title:       "Issue: " + ev.Issue.Title,
		Description: fmt.Sprintf("%s\n\nIssue URL: %s", ev.Issue.Body, ev.Issue.HTMLURL),
		Type:        items.TypeTask,
		Priority:    items.PriorityMedium,
		ProjectKey:  projectKey,
		Metadata: map[string]string{
			"source":       "github",
			"github_issue": fmt.Sprintf("%d", ev.Issue.Number),
			"github_user":  ev.Issue.User.Login,
			"github_repo":  ev.Repository.FullName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create work item from issue: %w", err)
	}

	return &Outcome{Status: StatusCreated, Item: item}, nil
}

func (g *GitHub) skipMalformed(eventType, projectKey string, err error) *Outcome {
	g.logger.Warn("malformed payload in verified delivery",
		"event", eventType,
		"project", projectKey,
		"error", err,
	)
	return &Outcome{Status: StatusSkipped, Message: "Payload could not be parsed"}
}
