package handler

import (
	"log/slog"
	"net/http"

	"github.com/krishna-ananth-vk/potholed/internal/middleware"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// ShellHandler serves the layout shell state: what the app frame needs
// before any page renders.
type ShellHandler struct {
	manager SessionManagerInterface
}

// NewShellHandler creates a ShellHandler.
func NewShellHandler(manager SessionManagerInterface) *ShellHandler {
	return &ShellHandler{manager: manager}
}

// shellResponse is the layout shell payload.
type shellResponse struct {
	Loading         bool `json:"loading"`
	Authenticated   bool `json:"authenticated"`
	ProfileComplete bool `json:"profile_complete"`
	ShowBanner      bool `json:"show_banner"`
}

// State returns the shell state. Unauthenticated requests get a neutral
// signed-out shell rather than an error, so the frame can always render.
// GET /api/shell
func (h *ShellHandler) State(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, shellResponse{})
		return
	}

	store, err := h.manager.Lookup(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("session lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, shellResponse{})
		return
	}
	if store == nil {
		writeJSON(w, http.StatusOK, shellResponse{})
		return
	}

	state := store.Snapshot()
	resp := shellResponse{
		Loading:         state.Loading,
		Authenticated:   state.Identity != nil,
		ProfileComplete: state.ProfileComplete(),
	}
	// The banner invites a signed-in user with no backend record to
	// finish their profile. Dismissal holds for the session only.
	resp.ShowBanner = resp.Authenticated && !state.Loading && !resp.ProfileComplete && !store.BannerDismissed()

	writeJSON(w, http.StatusOK, resp)
}

// DismissBanner hides the incomplete-profile banner for the rest of the
// session. It reappears after the next sign-in.
// POST /api/shell/banner/dismiss
func (h *ShellHandler) DismissBanner(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
		return
	}

	store, err := h.manager.Lookup(r.Context(), cookie.Value)
	if err != nil || store == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
		return
	}

	store.DismissBanner()
	w.WriteHeader(http.StatusNoContent)
}
