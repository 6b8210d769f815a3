// Package middleware holds the net/http middlewares of the API.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/unclebandit/coldreach-backend/internal/httputil"
	"github.com/unclebandit/coldreach-backend/internal/logger"
)

// UserHeader carries the authenticated user id, set by the gateway in front of the API.
const UserHeader = "X-User-ID"

type userKeyT struct{}

var userKey userKeyT

// RequireUser rejects requests without a valid X-User-ID and stores the id in the context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(UserHeader)), 10, 64)
		if err != nil || id <= 0 {
			httputil.Error(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, id)
		ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("user_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the id stored by RequireUser, or 0.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey).(int64)
	return id
}

// WithUserID returns a context as RequireUser would have built it.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userKey, id)
}
