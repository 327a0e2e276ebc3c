// Package signature verifies provider webhook signatures.
//
// Payment providers sign the literal bytes they transmit, so verification
// must run against the raw request body before any JSON decoding. Use
// PreserveRequestBody to capture those bytes without consuming the request.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"payment-webhook-service/internal/common/errors"
	"payment-webhook-service/internal/common/logging"
)

// TestBypassToken is the fixed signature value accepted for test and
// integration traffic when the verifier is built with bypass enabled.
const TestBypassToken = "TEST_SIGNATURE"

var (
	// ErrMissingSignature is returned when the signature header is absent
	ErrMissingSignature = errors.AuthError("missing signature")
	// ErrInvalidSignature is returned when the signature does not match the body digest
	ErrInvalidSignature = errors.AuthError("invalid signature")
)

// Verifier checks webhook signatures against a shared secret
type Verifier struct {
	header      string
	secret      []byte
	allowBypass bool
	logger      logging.Logger
}

// NewVerifier creates a signature verifier reading signatures from the given
// header. allowBypass admits TestBypassToken and must stay off in production.
func NewVerifier(header, secret string, allowBypass bool, logger logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Verifier{
		header:      header,
		secret:      []byte(secret),
		allowBypass: allowBypass,
		logger:      logger,
	}
}

// Verify checks the signature header against HMAC-SHA256(secret, body).
// body must be the exact bytes received on the wire; re-serialized JSON
// produces a different digest.
func (v *Verifier) Verify(headers http.Header, body []byte) error {
	provided := headers.Get(v.header)
	if provided == "" {
		return ErrMissingSignature
	}

	if v.allowBypass && provided == TestBypassToken {
		v.logger.Warn("Accepted test bypass signature",
			logging.String("header", v.header),
		)
		return nil
	}

	expected := v.Sign(body)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		v.logger.Debug("Signature mismatch",
			logging.String("header", v.header),
		)
		return ErrInvalidSignature
	}

	return nil
}

// Sign computes the lowercase hex HMAC-SHA256 digest of data
func (v *Verifier) Sign(data []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// PreserveRequestBody reads the full request body and replaces it with a
// fresh reader, returning the raw bytes for signature verification.
func PreserveRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
