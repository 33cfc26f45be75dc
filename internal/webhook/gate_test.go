package webhook

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/trellishq/trellis-gw/internal/dispatch"
	"github.com/trellishq/trellis-gw/internal/secrets"
	"github.com/trellishq/trellis-gw/internal/webhook/mocks"
)

const testSecret = "gate-test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGateRequest(body []byte, project, eventType, signature string) *http.Request {
	url := "/webhooks/github"
	if project != "" {
		url += "?project=" + project
	}
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if eventType != "" {
		req.Header.Set("X-GitHub-Event", eventType)
	}
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	return req
}

func TestGateValidDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	handler := mocks.NewMockEventHandler(ctrl)

	body := []byte(`{"zen":"Practicality beats purity."}`)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil)
	handler.EXPECT().Handle(gomock.Any(), "ping", body, "acme-main").
		Return(&dispatch.Outcome{Status: dispatch.StatusOK, Message: "Webhook received successfully"}, nil)

	gate := NewGate(resolver, handler, 1<<20, 10*time.Second, discardLogger())
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest(body, "acme-main", "ping", ComputeSignature(body, testSecret)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out dispatch.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != dispatch.StatusOK {
		t.Errorf("Status = %q, want %q", out.Status, dispatch.StatusOK)
	}
}

func TestGateMissingProject(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gate := NewGate(mocks.NewMockSecretResolver(ctrl), mocks.NewMockEventHandler(ctrl), 0, 0, discardLogger())
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest([]byte(`{}`), "", "ping", "sha256=00"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGateMissingEventType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gate := NewGate(mocks.NewMockSecretResolver(ctrl), mocks.NewMockEventHandler(ctrl), 0, 0, discardLogger())
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest([]byte(`{}`), "acme-main", "", "sha256=00"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGateSecretNotConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), "ghost", "github").Return("", secrets.ErrNotFound)

	gate := NewGate(resolver, mocks.NewMockEventHandler(ctrl), 0, 0, discardLogger())
	rec := httptest.NewRecorder()
	body := []byte(`{}`)
	gate.ServeHTTP(rec, newGateRequest(body, "ghost", "ping", ComputeSignature(body, "anything")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "anything") {
		t.Error("response leaked secret material")
	}
}

func TestGateInvalidSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil)

	body := []byte(`{"action":"opened"}`)
	gate := NewGate(resolver, mocks.NewMockEventHandler(ctrl), 0, 0, discardLogger())
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest(body, "acme-main", "pull_request", ComputeSignature(body, "wrong-secret")))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Webhook verification failed" {
		t.Errorf("error = %q, want generic message", resp.Error)
	}
}

func TestGateMissingSignatureHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil)

	gate := NewGate(resolver, mocks.NewMockEventHandler(ctrl), 0, 0, discardLogger())
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest([]byte(`{}`), "acme-main", "ping", ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGateBodyTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Resolver and handler must never be touched for an oversized body.
	gate := NewGate(mocks.NewMockSecretResolver(ctrl), mocks.NewMockEventHandler(ctrl), 64, 0, discardLogger())

	body := bytes.Repeat([]byte("x"), 65)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest(body, "acme-main", "push", ComputeSignature(body, testSecret)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestGateBodyExactlyAtLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	body := bytes.Repeat([]byte("x"), 64)
	resolver := mocks.NewMockSecretResolver(ctrl)
	handler := mocks.NewMockEventHandler(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil)
	handler.EXPECT().Handle(gomock.Any(), "push", body, "acme-main").
		Return(&dispatch.Outcome{Status: dispatch.StatusSkipped}, nil)

	gate := NewGate(resolver, handler, 64, 0, discardLogger())
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest(body, "acme-main", "push", ComputeSignature(body, testSecret)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGateDuplicateDeliveryIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	handler := mocks.NewMockEventHandler(ctrl)

	body := []byte(`{"action":"opened","pull_request":{"number":7,"title":"x"}}`)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil).Times(2)
	// The handler runs exactly once; the replay never reaches it.
	handler.EXPECT().Handle(gomock.Any(), "pull_request", body, "acme-main").
		Return(&dispatch.Outcome{Status: dispatch.StatusCreated}, nil)

	gate := NewGate(resolver, handler, 0, 0, discardLogger())
	sig := ComputeSignature(body, testSecret)

	first := newGateRequest(body, "acme-main", "pull_request", sig)
	first.Header.Set("X-GitHub-Delivery", "delivery-uuid-1")
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", rec.Code)
	}

	replay := newGateRequest(body, "acme-main", "pull_request", sig)
	replay.Header.Set("X-GitHub-Delivery", "delivery-uuid-1")
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, replay)

	if rec.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", rec.Code)
	}
	var out dispatch.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != dispatch.StatusIgnored {
		t.Errorf("replay Status = %q, want %q", out.Status, dispatch.StatusIgnored)
	}
}

func TestGateFailedDispatchAllowsRedelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	handler := mocks.NewMockEventHandler(ctrl)

	body := []byte(`{"zen":"Anything added dilutes everything else."}`)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil).Times(2)
	gomock.InOrder(
		handler.EXPECT().Handle(gomock.Any(), "ping", body, "acme-main").
			Return(nil, io.ErrUnexpectedEOF),
		handler.EXPECT().Handle(gomock.Any(), "ping", body, "acme-main").
			Return(&dispatch.Outcome{Status: dispatch.StatusOK}, nil),
	)

	gate := NewGate(resolver, handler, 0, 0, discardLogger())
	sig := ComputeSignature(body, testSecret)

	first := newGateRequest(body, "acme-main", "ping", sig)
	first.Header.Set("X-GitHub-Delivery", "delivery-uuid-2")
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, first)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed dispatch status = %d, want 500", rec.Code)
	}

	// The failed delivery was not recorded, so the provider redelivery
	// is dispatched again rather than ignored.
	redelivery := newGateRequest(body, "acme-main", "ping", sig)
	redelivery.Header.Set("X-GitHub-Delivery", "delivery-uuid-2")
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, redelivery)
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", rec.Code)
	}
}

func TestGateWithoutDeliveryHeaderNotDeduplicated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	handler := mocks.NewMockEventHandler(ctrl)

	body := []byte(`{"zen":"Design for failure."}`)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil).Times(2)
	handler.EXPECT().Handle(gomock.Any(), "ping", body, "acme-main").
		Return(&dispatch.Outcome{Status: dispatch.StatusOK}, nil).Times(2)

	gate := NewGate(resolver, handler, 0, 0, discardLogger())
	sig := ComputeSignature(body, testSecret)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, newGateRequest(body, "acme-main", "ping", sig))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
}

func TestGateDispatchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockSecretResolver(ctrl)
	handler := mocks.NewMockEventHandler(ctrl)
	body := []byte(`{"action":"opened","pull_request":{"number":1,"title":"x"}}`)
	resolver.EXPECT().Resolve(gomock.Any(), "acme-main", "github").Return(testSecret, nil)
	handler.EXPECT().Handle(gomock.Any(), "pull_request", body, "acme-main").
		Return(nil, io.ErrUnexpectedEOF)

	gate := NewGate(resolver, handler, 0, 0, discardLogger())
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, newGateRequest(body, "acme-main", "pull_request", ComputeSignature(body, testSecret)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "unexpected EOF") {
		t.Error("response leaked dispatch error detail")
	}
}
