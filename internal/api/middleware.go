package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/splitkaro/splitkaro/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	userIDKey   contextKey = "user_id"
	handleKey   contextKey = "handle"
	identityKey contextKey = "identity"
)

// requestIdentity is a mutable slot the logging middleware plants in the
// context. authMiddleware runs further down the chain on a child context,
// so it fills the slot rather than the logging middleware reading a value
// it can never see.
type requestIdentity struct {
	userID string
}

// GetUserID extracts the authenticated user ID from the context.
// Returns empty string if not set.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// GetHandle extracts the authenticated user's handle from the context.
func GetHandle(ctx context.Context) string {
	handle, _ := ctx.Value(handleKey).(string)
	return handle
}

// authMiddleware validates the Bearer token and adds the user identity to the
// request context.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, auth.ErrMissingToken)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, auth.ErrInvalidToken)
			return
		}

		claims, err := a.jwtManager.Validate(parts[1])
		if err != nil {
			writeError(w, auth.ErrInvalidToken)
			return
		}

		if ident, ok := r.Context().Value(identityKey).(*requestIdentity); ok {
			ident.userID = claims.UserID
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, handleKey, claims.Handle)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs every request with its route, status, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ident := &requestIdentity{}
		r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))

		next.ServeHTTP(recorder, r)

		logFn := slog.Info
		if recorder.status >= 500 {
			logFn = slog.Error
		} else if recorder.status >= 400 {
			logFn = slog.Warn
		}
		logFn("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"user_id", ident.userID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// routeTemplate returns the mux route template for metric labels, falling
// back to the raw path for unmatched requests.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return r.URL.Path
}
