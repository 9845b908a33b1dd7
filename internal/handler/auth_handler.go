package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/krishna-ananth-vk/potholed/internal/middleware"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/session"
)

const oauthStateCookie = "oauth_state"

// SessionManagerInterface is the session manager surface the auth
// handler needs.
type SessionManagerInterface interface {
	Begin() (string, *session.Store, error)
	Persist(ctx context.Context, sessionID string) error
	Lookup(ctx context.Context, sessionID string) (*session.Store, error)
	End(ctx context.Context, sessionID string) error
}

// GoogleFlowInterface is the federated sign-in flow the auth handler
// needs. Nil when Google sign-in is not configured.
type GoogleFlowInterface interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// PasswordResetter sends password-reset emails without a session.
// Defined as the subset of identity.Provider the handler needs.
type PasswordResetter interface {
	SendPasswordReset(ctx context.Context, email string) error
}

// AuthCollector records sign-in and sign-out metrics.
type AuthCollector interface {
	RecordSignIn(method string)
	RecordSignOut()
}

// AuthHandlerConfig holds the auth handler settings.
type AuthHandlerConfig struct {
	BaseURL       string
	LoginPath     string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // session cookie lifetime in seconds
}

// AuthHandler serves the sign-up, sign-in, and sign-out endpoints.
type AuthHandler struct {
	manager   SessionManagerInterface
	google    GoogleFlowInterface
	resetter  PasswordResetter
	collector AuthCollector
	config    AuthHandlerConfig
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(manager SessionManagerInterface, google GoogleFlowInterface, resetter PasswordResetter, collector AuthCollector, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		manager:   manager,
		google:    google,
		resetter:  resetter,
		collector: collector,
		config:    config,
	}
}

// signUpRequest is the sign-up request body.
type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// loginRequest is the password sign-in request body.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// passwordResetRequest is the password-reset request body.
type passwordResetRequest struct {
	Email string `json:"email"`
}

// identityResponse is the signed-in identity payload.
type identityResponse struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`
}

// SignUp creates an account, signs it in, and starts a session.
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidProfileError("email and password are required"))
		return
	}

	// 1. Fresh session store
	sessionID, store, err := h.manager.Begin()
	if err != nil {
		slog.Error("failed to begin session", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	// 2. Create and sign in the account. The store applies the identity
	// event asynchronously, so the response is built from the returned
	// identity rather than a snapshot.
	ident, err := store.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.abandonSession(r.Context(), sessionID)
		handleServiceError(w, err)
		return
	}

	// 3. Persist for resume after restart
	if err := h.manager.Persist(r.Context(), sessionID); err != nil {
		slog.Error("failed to persist session", slog.String("error", err.Error()))
	}

	h.setSessionCookie(w, sessionID)
	h.collector.RecordSignIn("signup")

	writeJSON(w, http.StatusCreated, toIdentityResponse(ident))
}

// Login authenticates with email and password and starts a session.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	sessionID, store, err := h.manager.Begin()
	if err != nil {
		slog.Error("failed to begin session", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	ident, err := store.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.abandonSession(r.Context(), sessionID)
		handleServiceError(w, err)
		return
	}

	if err := h.manager.Persist(r.Context(), sessionID); err != nil {
		slog.Error("failed to persist session", slog.String("error", err.Error()))
	}

	h.setSessionCookie(w, sessionID)
	h.collector.RecordSignIn("password")

	writeJSON(w, http.StatusOK, toIdentityResponse(ident))
}

// Logout ends the session. Idempotent: a missing or unknown cookie is
// answered the same way as a live session.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if endErr := h.manager.End(r.Context(), cookie.Value); endErr != nil {
			slog.Error("failed to end session", slog.String("error", endErr.Error()))
			// clear the cookie regardless
		}
		h.collector.RecordSignOut()
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// PasswordReset requests a password-reset email.
// POST /auth/password-reset
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidProfileError("email is required"))
		return
	}

	if err := h.resetter.SendPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// ResendVerification requests another verification email for the
// session's identity. Without a signed-in identity it reports
// sent=false instead of failing.
// POST /auth/verification/resend
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	store := h.storeFromCookie(r)
	if store == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"sent": false})
		return
	}

	sent, err := store.ResendVerification(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}

// GoogleLogin starts the Google sign-in flow.
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeAPIErrorResponse(w, http.StatusNotImplemented, model.NewFederatedSignInError("Google sign-in is not configured"))
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Keep the state in a cookie for the callback check
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the Google sign-in flow.
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeAPIErrorResponse(w, http.StatusNotImplemented, model.NewFederatedSignInError("Google sign-in is not configured"))
		return
	}

	// 1. Verify the state
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		h.redirectToLoginWithError(w, r, "state_mismatch")
		return
	}

	// Drop the state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. Exchange the authorization code for a Google ID token
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectToLoginWithError(w, r, "missing_code")
		return
	}

	googleIDToken, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		h.redirectToLoginWithError(w, r, "exchange_failed")
		return
	}

	// 3. Sign in at the identity service with the Google token
	sessionID, store, err := h.manager.Begin()
	if err != nil {
		slog.Error("failed to begin session", slog.String("error", err.Error()))
		h.redirectToLoginWithError(w, r, "session_failed")
		return
	}

	if _, err := store.LoginWithIDP(r.Context(), googleIDToken); err != nil {
		h.abandonSession(r.Context(), sessionID)
		slog.Error("federated sign-in failed", slog.String("error", err.Error()))
		h.redirectToLoginWithError(w, r, "signin_failed")
		return
	}

	if err := h.manager.Persist(r.Context(), sessionID); err != nil {
		slog.Error("failed to persist session", slog.String("error", err.Error()))
	}

	h.setSessionCookie(w, sessionID)
	h.collector.RecordSignIn("google")

	// 4. Back to the front end
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Me returns the session's identity and profile snapshot.
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store, err := middleware.StoreFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
		return
	}

	state := store.Snapshot()
	resp := map[string]any{
		"identity": toIdentityResponse(state.Identity),
		"loading":  state.Loading,
	}
	if state.Profile != nil {
		resp["profile"] = state.Profile
	}

	writeJSON(w, http.StatusOK, resp)
}

// storeFromCookie resolves the session store from the request cookie.
// Returns nil when there is no usable session.
func (h *AuthHandler) storeFromCookie(r *http.Request) *session.Store {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	store, err := h.manager.Lookup(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("session lookup failed", slog.String("error", err.Error()))
		return nil
	}
	return store
}

// abandonSession discards a session whose sign-in attempt failed.
func (h *AuthHandler) abandonSession(ctx context.Context, sessionID string) {
	if err := h.manager.End(ctx, sessionID); err != nil {
		slog.Warn("failed to discard session", slog.String("error", err.Error()))
	}
}

// setSessionCookie sets the HTTP-only session cookie.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie removes the session cookie.
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectToLoginWithError sends the browser back to the login page with
// an error marker the front end can show.
func (h *AuthHandler) redirectToLoginWithError(w http.ResponseWriter, r *http.Request, reason string) {
	target := h.config.BaseURL + h.config.LoginPath + "?error=" + url.QueryEscape(reason)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// toIdentityResponse converts an identity to its API payload.
// Returns nil for a signed-out state.
func toIdentityResponse(ident *model.Identity) *identityResponse {
	if ident == nil {
		return nil
	}
	return &identityResponse{
		UID:           ident.UID,
		Email:         ident.Email,
		DisplayName:   ident.DisplayName,
		EmailVerified: ident.EmailVerified,
	}
}

// generateState generates a random state value for the OAuth flow.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
