// Package middleware provides HTTP middleware for the task API.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ajithabhiram/Kaiburr-task2/internal/logger"
)

// RequestIDHeader carries the correlation id in requests and responses.
const RequestIDHeader = "X-Request-Id"

// RequestID assigns each request a correlation id, reusing the caller's
// header when present, and makes it available to downstream log lines.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
