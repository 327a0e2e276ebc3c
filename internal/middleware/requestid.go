package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"payment-webhook-service/internal/common/logging"
)

// RequestIDHeader carries the request id back to the caller
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a uuid (reusing the caller's id when one
// is supplied), stores it in the context for loggers, and echoes it in the
// response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), logging.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
