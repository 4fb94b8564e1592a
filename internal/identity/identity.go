// Package identity extracts the authenticated user id from requests and
// threads it through the request context. Authentication itself happens
// upstream (gateway/session layer); this package only consumes its output.
package identity

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const (
	// UserHeaderName carries the authenticated user id set by the upstream
	// auth layer.
	UserHeaderName = "X-User-ID"
)

type contextKey int

const userIDKey contextKey = iota

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

func userIDFromRequest(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(UserHeaderName))
	if id == "" {
		return ""
	}
	if !userIDPattern.MatchString(id) {
		slog.Warn("Dropping malformed user id header", "ip", IPFromRequest(r))
		return ""
	}
	return id
}

// Middleware injects the upstream-authenticated user id into the request
// context. Requests without a usable id pass through with an empty id;
// handlers that need one reject those themselves.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := userIDFromRequest(r)
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for log context.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
