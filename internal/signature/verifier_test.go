package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	body := []byte(`{"event":"payment.captured","id":"evt_1","payload":{"payment":{"entity":{"id":"pay_1"}}}}`)
	v := NewVerifier("X-Razorpay-Signature", testSecret, false, nil)

	t.Run("ValidSignature", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", sign(testSecret, body))

		assert.NoError(t, v.Verify(headers, body))
	})

	t.Run("MissingSignature", func(t *testing.T) {
		err := v.Verify(http.Header{}, body)

		assert.ErrorIs(t, err, ErrMissingSignature)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", "deadbeef")

		err := v.Verify(headers, body)

		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("SignatureOverDifferentBytes", func(t *testing.T) {
		// Same JSON value, different whitespace: the digest must differ
		reformatted := []byte(`{"event": "payment.captured", "id": "evt_1", "payload": {"payment": {"entity": {"id": "pay_1"}}}}`)
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", sign(testSecret, reformatted))

		err := v.Verify(headers, body)

		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", sign("other_secret", body))

		err := v.Verify(headers, body)

		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestVerifyBypassToken(t *testing.T) {
	body := []byte(`{"anything":true}`)

	t.Run("AcceptedWhenEnabled", func(t *testing.T) {
		v := NewVerifier("X-Razorpay-Signature", testSecret, true, nil)
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", TestBypassToken)

		assert.NoError(t, v.Verify(headers, body))
	})

	t.Run("RejectedWhenDisabled", func(t *testing.T) {
		v := NewVerifier("X-Razorpay-Signature", testSecret, false, nil)
		headers := http.Header{}
		headers.Set("X-Razorpay-Signature", TestBypassToken)

		err := v.Verify(headers, body)

		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestSign(t *testing.T) {
	v := NewVerifier("X-Razorpay-Signature", testSecret, false, nil)

	digest := v.Sign([]byte("hello"))

	assert.Equal(t, sign(testSecret, []byte("hello")), digest)
	assert.Equal(t, strings.ToLower(digest), digest, "digest must be lowercase hex")
	assert.Len(t, digest, 64)
}

func TestPreserveRequestBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/webhook/payments", strings.NewReader("raw-bytes"))

	body, err := PreserveRequestBody(r)
	require.NoError(t, err)
	assert.Equal(t, "raw-bytes", string(body))

	// The request body must still be readable after capture
	replayed, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, "raw-bytes", string(replayed))
}
