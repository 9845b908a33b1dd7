// Package middleware provides the HTTP middleware.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/krishna-ananth-vk/potholed/internal/session"
)

// SessionCookieName is the HTTP-only cookie carrying the session ID.
const SessionCookieName = "potholed_session"

// contextKey is a type-safe key for context values.
type contextKey string

// storeContextKey stores the caller's session store in the request context.
var storeContextKey = contextKey("session_store")

// sessionIDContextKey stores the session cookie ID in the request context.
var sessionIDContextKey = contextKey("session_id")

// userIDContextKey stores the authenticated identity UID in the request context.
var userIDContextKey = contextKey("user_id")

// StoreLookup resolves a session cookie ID to a live session store.
// Defined as the subset of session.Manager the guard needs.
type StoreLookup interface {
	Lookup(ctx context.Context, sessionID string) (*session.Store, error)
}

// GuardCollector records route guard verdicts.
type GuardCollector interface {
	RecordGuardDecision(decision string)
}

// NewGuardMiddleware returns the route guard for authenticated surfaces.
// Behavior per session state:
//   - no cookie, or no session behind it: 303 redirect to loginPath with
//     Cache-Control no-store, so the guarded URL never enters history
//   - session still resolving its profile: 202 with a neutral placeholder
//     body, never a redirect
//   - signed in: session store and identity UID injected into the request
//     context, request continues
func NewGuardMiddleware(lookup StoreLookup, loginPath string, collector GuardCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Read the session cookie
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				collector.RecordGuardDecision(session.DecisionRedirect.String())
				redirectToLogin(w, r, loginPath)
				return
			}

			// 2. Resolve the store behind the cookie
			store, err := lookup.Lookup(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("session lookup failed",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if store == nil {
				collector.RecordGuardDecision(session.DecisionRedirect.String())
				redirectToLogin(w, r, loginPath)
				return
			}

			// 3. Decide on the current snapshot
			state := store.Snapshot()
			decision := session.Decide(state)
			collector.RecordGuardDecision(decision.String())

			switch decision {
			case session.DecisionDefer:
				writePlaceholder(w)
				return
			case session.DecisionRedirect:
				redirectToLogin(w, r, loginPath)
				return
			}

			// 4. Allow: inject the store and identity into the context
			ctx := context.WithValue(r.Context(), storeContextKey, store)
			ctx = context.WithValue(ctx, sessionIDContextKey, cookie.Value)
			ctx = context.WithValue(ctx, userIDContextKey, state.Identity.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redirectToLogin sends the client to the login page. The no-store header
// keeps the guarded URL out of the browser's back/forward cache, which is
// how the redirect replaces history instead of stacking on it.
func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// writePlaceholder answers a request whose session is still resolving.
// 202 signals "not concluded yet"; the client retries instead of
// treating the user as signed out.
func writePlaceholder(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "resolving",
		"message": "Session is being resolved. Retry shortly.",
	})
}

// StoreFromContext returns the session store injected by the guard.
func StoreFromContext(ctx context.Context) (*session.Store, error) {
	store, ok := ctx.Value(storeContextKey).(*session.Store)
	if !ok || store == nil {
		return nil, fmt.Errorf("session store not found in context")
	}
	return store, nil
}

// SessionIDFromContext returns the session cookie ID injected by the guard.
func SessionIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return id, nil
}

// UserIDFromContext returns the identity UID injected by the guard.
// Valid only for requests that passed the guard.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithStore injects a session store into a context.
// Used by tests and non-middleware context construction.
func ContextWithStore(ctx context.Context, store *session.Store, sessionID, userID string) context.Context {
	ctx = context.WithValue(ctx, storeContextKey, store)
	ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
	return context.WithValue(ctx, userIDContextKey, userID)
}
