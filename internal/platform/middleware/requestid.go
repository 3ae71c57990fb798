package middleware

import (
	"context"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDLimit = 128

func unprintable(r rune) bool { return r < ' ' || r > '~' }

// acceptableRequestID reports whether a client supplied X-Request-Id can be
// echoed and logged as is.
func acceptableRequestID(id string) bool {
	return id != "" && len(id) <= requestIDLimit && strings.IndexFunc(id, unprintable) < 0
}

// RequestID tags each request with an id stored under chi's RequestIDKey and
// returned in X-Request-Id, so access logs and responses can be correlated.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(chimiddleware.RequestIDHeader)
			if !acceptableRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(chimiddleware.RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
