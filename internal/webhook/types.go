package webhook

// VerificationResult classifies the outcome of signature verification.
type VerificationResult int

const (
	// ResultValid means the signature matched.
	ResultValid VerificationResult = iota
	// ResultInvalidSignature covers every mismatch: wrong MAC, wrong
	// format, undecodable hex. Callers must not distinguish between them.
	ResultInvalidSignature
	// ResultMissingSignature means the signature header was absent or empty.
	ResultMissingSignature
	// ResultSecretNotFound means no secret is configured for the project.
	ResultSecretNotFound
	// ResultPayloadTooLarge means the body exceeded the size limit.
	ResultPayloadTooLarge
)

// String returns the result name for logging.
func (r VerificationResult) String() string {
	switch r {
	case ResultValid:
		return "valid"
	case ResultInvalidSignature:
		return "invalid_signature"
	case ResultMissingSignature:
		return "missing_signature"
	case ResultSecretNotFound:
		return "secret_not_found"
	case ResultPayloadTooLarge:
		return "payload_too_large"
	default:
		return "unknown"
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
