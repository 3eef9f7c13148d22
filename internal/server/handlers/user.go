// internal/server/handlers/user.go

package handlers

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader carries the acting user, set by the upstream gateway
const UserHeader = "X-User-ID"

type contextKey string

const userKey contextKey = "user"

// RequireUser rejects requests without a user header and stores the user in
// the request context
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(UserHeader))
		if user == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing "+UserHeader+" header", nil)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFrom returns the user RequireUser stored, empty when absent
func userFrom(r *http.Request) string {
	user, _ := r.Context().Value(userKey).(string)
	return user
}
