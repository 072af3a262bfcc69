package middleware

import (
	"context"
	"net/http"

	"github.com/openmca/auth-api/internal/application/auth"
)

// SessionCookie is the name of the opaque session cookie.
const SessionCookie = "session_id"

type contextKey string

const sessionIDKey contextKey = "session_id"

// SessionAuth returns middleware that validates the session cookie and
// injects the session id into the request context. Routes behind it can
// assume a live, unexpired session.
func SessionAuth(svc auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookie)
			if err != nil || c.Value == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing session cookie")
				return
			}
			if err := svc.VerifySession(r.Context(), c.Value); err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			ctx := context.WithValue(r.Context(), sessionIDKey, c.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext extracts the validated session id from the request context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(sessionIDKey).(string)
	return s, ok
}
