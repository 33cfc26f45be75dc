package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trellishq/trellis-gw/internal/dispatch"
	"github.com/trellishq/trellis-gw/internal/secrets"
)

const (
	// sourceGitHub identifies the GitHub webhook source in secret lookups.
	sourceGitHub = "github"

	// signatureHeader is the header carrying the HMAC signature.
	signatureHeader = "X-Hub-Signature-256"

	// eventTypeHeader is the header naming the GitHub event type.
	eventTypeHeader = "X-GitHub-Event"

	// deliveryHeader carries GitHub's unique delivery ID, used to
	// suppress duplicate deliveries.
	deliveryHeader = "X-GitHub-Delivery"

	// deliveryWindow is how long a dispatched delivery ID is remembered.
	deliveryWindow = 24 * time.Hour
)

// Gate is the HTTP entry point for webhook deliveries. It enforces body
// size limits, resolves the per-project secret, verifies the HMAC
// signature, and only then hands the payload to the event handler.
type Gate struct {
	secrets         SecretResolver
	handler         EventHandler
	deliveries      *deliveryLog
	maxBodySize     int64
	dispatchTimeout time.Duration
	logger          *slog.Logger
}

// NewGate creates a webhook gate. maxBodySize and dispatchTimeout fall back
// to 1MB and 10s when zero.
func NewGate(resolver SecretResolver, handler EventHandler, maxBodySize int64, dispatchTimeout time.Duration, logger *slog.Logger) *Gate {
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = 10 * time.Second
	}
	return &Gate{
		secrets:         resolver,
		handler:         handler,
		deliveries:      newDeliveryLog(deliveryWindow),
		maxBodySize:     maxBodySize,
		dispatchTimeout: dispatchTimeout,
		logger:          logger,
	}
}

// ServeHTTP handles a webhook delivery.
func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectKey := r.URL.Query().Get("project")
	if projectKey == "" {
		g.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing project query parameter"})
		return
	}

	eventType := r.Header.Get(eventTypeHeader)
	if eventType == "" {
		g.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing " + eventTypeHeader + " header"})
		return
	}

	// Size limit is enforced before the body is hashed. Read one byte past
	// the limit so an exactly-at-limit body is still accepted.
	body, err := io.ReadAll(io.LimitReader(r.Body, g.maxBodySize+1))
	if err != nil {
		g.logger.Warn("failed to read webhook body", "project", projectKey, "error", err)
		g.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read request body"})
		return
	}
	if int64(len(body)) > g.maxBodySize {
		g.logger.Warn("webhook body too large",
			"project", projectKey,
			"limit", g.maxBodySize,
			"result", ResultPayloadTooLarge.String(),
		)
		g.respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
		return
	}

	secret, err := g.secrets.Resolve(ctx, projectKey, sourceGitHub)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			// The resolver maps failures to ErrNotFound. Anything else
			// still fails closed.
			g.logger.Error("secret resolution failed", "project", projectKey, "error", err)
		}
		g.logger.Warn("webhook rejected",
			"project", projectKey,
			"event", eventType,
			"result", ResultSecretNotFound.String(),
		)
		g.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Webhook secret not configured for project"})
		return
	}

	result := VerifySignature(body, r.Header.Get(signatureHeader), secret)
	if result != ResultValid {
		g.logger.Warn("webhook rejected",
			"project", projectKey,
			"event", eventType,
			"result", result.String(),
		)
		g.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "Webhook verification failed"})
		return
	}

	// Replay suppression is checked only for verified deliveries so an
	// unsigned request can never poison the log and shadow a real one.
	deliveryID := r.Header.Get(deliveryHeader)
	if deliveryID != "" && g.deliveries.Seen(deliveryID) {
		g.logger.Info("duplicate webhook delivery ignored",
			"project", projectKey,
			"event", eventType,
			"delivery_id", deliveryID,
		)
		g.respondJSON(w, http.StatusOK, dispatch.Outcome{
			Status:  dispatch.StatusIgnored,
			Message: "Duplicate delivery",
		})
		return
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, g.dispatchTimeout)
	defer cancel()

	outcome, err := g.handler.Handle(dispatchCtx, eventType, body, projectKey)
	if err != nil {
		g.logger.Error("webhook dispatch failed",
			"project", projectKey,
			"event", eventType,
			"error", err,
		)
		g.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	// Only record after a successful dispatch so a failed delivery can
	// still be redelivered by the provider.
	if deliveryID != "" {
		g.deliveries.Record(deliveryID)
	}

	g.logger.Info("webhook processed",
		"project", projectKey,
		"event", eventType,
		"status", outcome.Status,
	)
	g.respondJSON(w, http.StatusOK, outcome)
}

func (g *Gate) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}
