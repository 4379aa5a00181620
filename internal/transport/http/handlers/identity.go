package handlers

import (
	"context"
	"net/http"

	"github.com/osavenko/matcha/backend/internal/pkg/validate"
)

// Caller identity arrives from the upstream gateway in the X-User-ID header.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	return userID, ok && userID != ""
}

// RequireUserID rejects requests without a caller identity and stores the
// user id on the request context for the handlers downstream.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := validate.Trimmed(r.Header.Get(UserIDHeader))
		if !ok {
			writeUnauthorized(w, "UNAUTHORIZED", "caller identity is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
