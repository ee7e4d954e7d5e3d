package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Identity resolves the calling user from the X-User-ID header and injects
// the parsed ID into the request context. Requests without a valid UUID are
// rejected; the platform trusts an upstream gateway to have authenticated
// the caller.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing X-User-ID header"}`, http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(raw)
			if err != nil || userID == uuid.Nil {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"X-User-ID must be a valid UUID"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
