package webhook

import (
	"context"

	"github.com/trellishq/trellis-gw/internal/dispatch"
)

//go:generate mockgen -destination=mocks/mock_gate.go -package=mocks github.com/trellishq/trellis-gw/internal/webhook SecretResolver,EventHandler

// SecretResolver looks up the signing secret for a project and source.
// Implementations fail closed: anything other than a definitive answer
// surfaces as secrets.ErrNotFound.
type SecretResolver interface {
	Resolve(ctx context.Context, projectKey, source string) (string, error)
}

// EventHandler processes a delivery after its signature has been verified.
type EventHandler interface {
	Handle(ctx context.Context, eventType string, payload []byte, projectKey string) (*dispatch.Outcome, error)
}
