package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"payment-webhook-service/internal/common/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("GeneratesID", func(t *testing.T) {
		var ctxID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID, _ = r.Context().Value(logging.RequestIDKey).(string)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, ctxID)
		assert.Equal(t, ctxID, rec.Header().Get(RequestIDHeader))
	})

	t.Run("ReusesCallerID", func(t *testing.T) {
		handler := RequestID(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "delivery-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "delivery-42", rec.Header().Get(RequestIDHeader))
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("OverLimitRejected", func(t *testing.T) {
		limiter := NewRateLimiter(true, 1, 1)
		handler := limiter.Middleware(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/webhook/payments", nil)
		req.RemoteAddr = "10.0.0.1:1234"

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, req)
		assert.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, req)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("ClientsLimitedIndependently", func(t *testing.T) {
		limiter := NewRateLimiter(true, 1, 1)
		handler := limiter.Middleware(okHandler())

		blocked := httptest.NewRequest(http.MethodPost, "/webhook/payments", nil)
		blocked.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(httptest.NewRecorder(), blocked)

		other := httptest.NewRequest(http.MethodPost, "/webhook/payments", nil)
		other.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, other)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("DisabledAllowsEverything", func(t *testing.T) {
		limiter := NewRateLimiter(false, 1, 1)
		handler := limiter.Middleware(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/webhook/payments", nil)
		req.RemoteAddr = "10.0.0.1:1234"

		for i := 0; i < 10; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestLoggingCapturesStatus(t *testing.T) {
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/payments", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
