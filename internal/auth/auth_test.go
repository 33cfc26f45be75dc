package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	token, err := ExtractBearerToken(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "test-token" {
		t.Fatalf("expected token %q, got %q", "test-token", token)
	}

	req2 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := ExtractBearerToken(req2); err != ErrMissing {
		t.Fatalf("expected ErrMissing for absent header, got %v", err)
	}

	req3 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req3.Header.Set("Authorization", "Basic abc")
	if _, err := ExtractBearerToken(req3); err != ErrMalformed {
		t.Fatalf("expected ErrMalformed for non-bearer header, got %v", err)
	}

	req4 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req4.Header.Set("Authorization", "Bearer   ")
	if _, err := ExtractBearerToken(req4); err != ErrMissing {
		t.Fatalf("expected ErrMissing for empty bearer token, got %v", err)
	}
}

func TestTokenHint(t *testing.T) {
	if got := TokenHint("abcdefghij"); got != "abcdef..." {
		t.Errorf("TokenHint = %q", got)
	}
	if got := TokenHint("abc"); got != "******" {
		t.Errorf("TokenHint for short token = %q", got)
	}
	if got := TokenHint(""); got != "******" {
		t.Errorf("TokenHint for empty token = %q", got)
	}
}

func TestHasAnyScope(t *testing.T) {
	id := Identity{Scopes: normalizeScopes([]string{"items:rw"})}

	if !HasAnyScope(id, "items:rw") {
		t.Error("expected items:rw to be granted")
	}
	if !HasAnyScope(id, "items:ro") {
		t.Error("expected items:ro to be implied by items:rw")
	}
	if HasAnyScope(id, "secrets:rw") {
		t.Error("expected secrets:rw to be denied")
	}
	if !HasAnyScope(id) {
		t.Error("expected empty requirement to pass")
	}

	admin := Identity{Scopes: map[string]struct{}{"*": {}}}
	if !HasAnyScope(admin, "anything") {
		t.Error("expected wildcard to grant everything")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !constantTimeEqual("same", "same") {
		t.Error("expected equal strings to match")
	}
	if constantTimeEqual("same", "other") {
		t.Error("expected different strings to mismatch")
	}
	if constantTimeEqual("", "") {
		t.Error("expected empty strings to mismatch")
	}
	if constantTimeEqual("short", "longer-string") {
		t.Error("expected length mismatch to fail")
	}
}
