package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// RemoteStore resolves secrets from the core tracker service over HTTP.
// Lookups run behind a circuit breaker; an open breaker or any transport
// failure resolves to ErrNotFound so the gate fails closed rather than
// hammering a struggling upstream.
type RemoteStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

type secretResponse struct {
	Secret string `json:"secret"`
}

// NewRemoteStore creates a store that queries baseURL for secrets.
func NewRemoteStore(baseURL, token string, logger *slog.Logger) *RemoteStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "secret-store",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		// A 404 is a configuration answer, not an upstream fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("secret store circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &RemoteStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		logger:     logger,
	}
}

func (s *RemoteStore) Resolve(ctx context.Context, projectKey, source string) (string, error) {
	if projectKey == "" || source == "" {
		return "", ErrNotFound
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx, projectKey, source)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("secret lookup rejected by open circuit breaker",
				"project", projectKey,
				"source", source,
			)
			return "", ErrNotFound
		}
		s.logger.Warn("remote secret lookup failed",
			"project", projectKey,
			"source", source,
			"error", err,
		)
		return "", ErrNotFound
	}
	return result.(string), nil
}

func (s *RemoteStore) fetch(ctx context.Context, projectKey, source string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/projects/%s/webhooks/%s/secret",
		s.baseURL, url.PathEscape(projectKey), url.PathEscape(source))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build secret request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("secret request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body secretResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode secret response: %w", err)
		}
		if body.Secret == "" {
			return "", ErrNotFound
		}
		return body.Secret, nil
	case http.StatusNotFound:
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("secret service returned status %d", resp.StatusCode)
	}
}
