package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/trellishq/trellis-gw/internal/auth"
	"github.com/trellishq/trellis-gw/internal/items"
)

// handleHealthz returns basic service health. No authentication required.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleWhoami echoes the authenticated identity. Useful for verifying token
// configuration without touching any resource.
func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	scopes := make([]string, 0, len(id.Scopes))
	for scope := range id.Scopes {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	resp := WhoamiResponse{
		Subject:    id.Subject,
		ProjectKey: id.ProjectKey,
		Scopes:     scopes,
	}
	if !id.ExpiresAt.IsZero() {
		resp.ExpiresAt = &id.ExpiresAt
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleGetWorkItem returns a single work item by ID.
func (s *Server) handleGetWorkItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	item, err := s.items.Get(r.Context(), itemID)
	if errors.Is(err, items.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "work item not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load work item", "item_id", itemID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load work item")
		return
	}

	if !s.projectAllowed(r, item.ProjectKey) {
		// Cross-project reads look identical to missing items.
		s.writeError(w, http.StatusNotFound, "work item not found")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleListWorkItems returns work items for a project, newest first.
func (s *Server) handleListWorkItems(w http.ResponseWriter, r *http.Request) {
	projectKey := r.URL.Query().Get("project")
	if projectKey == "" {
		s.writeError(w, http.StatusBadRequest, "missing project query parameter")
		return
	}

	if !s.projectAllowed(r, projectKey) {
		s.writeError(w, http.StatusForbidden, "project not permitted for this token")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	list, err := s.items.ListByProject(r.Context(), projectKey, limit)
	if err != nil {
		s.logger.Error("failed to list work items", "project", projectKey, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list work items")
		return
	}
	if list == nil {
		list = []*items.WorkItem{}
	}

	respondJSON(w, http.StatusOK, list)
}

// handleRotateSecret installs a new webhook secret, or just drops the cached
// value when no secret is supplied in the body.
func (s *Server) handleRotateSecret(w http.ResponseWriter, r *http.Request) {
	projectKey := chi.URLParam(r, "project")
	source := chi.URLParam(r, "source")

	if !s.projectAllowed(r, projectKey) {
		s.writeError(w, http.StatusForbidden, "project not permitted for this token")
		return
	}

	var req RotateSecretRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	status := "invalidated"
	if req.Secret != "" {
		if err := s.rotator.Rotate(r.Context(), projectKey, source, req.Secret); err != nil {
			s.logger.Error("secret rotation failed", "project", projectKey, "source", source, "error", err)
			s.writeError(w, http.StatusInternalServerError, "secret rotation failed")
			return
		}
		status = "rotated"
	} else {
		if err := s.rotator.Invalidate(r.Context(), projectKey, source); err != nil {
			s.logger.Error("secret invalidation failed", "project", projectKey, "source", source, "error", err)
			s.writeError(w, http.StatusInternalServerError, "secret invalidation failed")
			return
		}
	}

	s.logger.Info("webhook secret "+status, "project", projectKey, "source", source)
	respondJSON(w, http.StatusOK, RotateSecretResponse{
		Status:     status,
		ProjectKey: projectKey,
		Source:     source,
	})
}

// projectAllowed reports whether the caller's token may touch the project.
// Tokens without a project key, and wildcard-scoped tokens, may touch any.
func (s *Server) projectAllowed(r *http.Request, projectKey string) bool {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return false
	}
	if id.ProjectKey == "" {
		return true
	}
	if _, wildcard := id.Scopes["*"]; wildcard {
		return true
	}
	return id.ProjectKey == projectKey
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
