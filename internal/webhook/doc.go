// Package webhook implements the HMAC-SHA256 verification gate for inbound
// webhook deliveries.
//
// All deliveries require a valid HMAC-SHA256 signature computed over the raw
// request body with a pre-shared per-project secret. Verification happens
// before any payload parsing or dispatch.
//
// # Security Model
//
// - Signatures compared with crypto/subtle (constant-time comparison)
// - Body size limits enforced before the body is hashed
// - Signature failures answered with a generic 401 (no details)
// - Secret lookup failures fail closed: an unresolvable secret rejects
// - Secrets never appear in responses, errors, or logs
//
// # Request Flow
//
//  1. HTTP POST arrives with ?project=<key> and X-GitHub-Event header
//  2. Missing project or event type rejected with 400
//  3. Body read under the configured size limit (413 if exceeded)
//  4. Per-project secret resolved (400 if not configured)
//  5. HMAC-SHA256 computed over the body and compared in constant time
//     against the X-Hub-Signature-256 header (401 on any mismatch)
//  6. Replayed X-GitHub-Delivery IDs acknowledged with status ignored
//     without redispatching (IDs are remembered for 24 hours, and only
//     after a successful dispatch)
//  7. Verified payload handed to the event dispatcher
//  8. 200 returned with status ok, created, or skipped
//
// # Error Responses
//
// - 400 Bad Request: missing project, missing event type, secret not configured
// - 401 Unauthorized: missing or invalid signature (no details)
// - 413 Payload Too Large: body exceeds max_body_size
// - 500 Internal Server Error: dispatch failed (detail only logged)
package webhook
