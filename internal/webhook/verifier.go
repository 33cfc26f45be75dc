package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// signaturePrefix is the required scheme marker in X-Hub-Signature-256.
const signaturePrefix = "sha256="

// VerifySignature checks an X-Hub-Signature-256 header against the raw
// request body using HMAC-SHA256 with the given secret.
//
// The header must carry the "sha256=<hex>" format. Comparison uses
// crypto/subtle to prevent timing attacks. Every malformed header
// (wrong scheme, bad hex, wrong length) maps to ResultInvalidSignature
// so callers cannot distinguish a near-miss from garbage.
func VerifySignature(body []byte, signatureHeader, secret string) VerificationResult {
	if secret == "" {
		return ResultSecretNotFound
	}
	if signatureHeader == "" {
		return ResultMissingSignature
	}

	if !strings.HasPrefix(signatureHeader, signaturePrefix) {
		return ResultInvalidSignature
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, signaturePrefix))
	if err != nil {
		return ResultInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, provided) != 1 {
		return ResultInvalidSignature
	}
	return ResultValid
}

// ComputeSignature returns the X-Hub-Signature-256 header value for a body.
// Used by tests and by senders that need to sign outbound payloads.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
