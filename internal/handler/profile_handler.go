package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/krishna-ananth-vk/potholed/internal/middleware"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/user"
)

// UserServiceInterface is the service surface the profile handler needs.
type UserServiceInterface interface {
	View(identity *model.Identity, profile *model.Profile) *user.ProfileView
	Save(ctx context.Context, idToken string, exists bool, draft *model.ProfileDraft) error
}

// ProfileHandler serves the profile view and edit endpoints.
type ProfileHandler struct {
	service UserServiceInterface
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(service UserServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// View returns the profile page payload with derived stats.
// GET /api/profile
func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	store, err := middleware.StoreFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
		return
	}

	state := store.Snapshot()
	writeJSON(w, http.StatusOK, h.service.View(state.Identity, state.Profile))
}

// Save persists a profile edit and refreshes the session profile so the
// next snapshot reflects the save.
// PUT /api/profile
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	store, err := middleware.StoreFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
		return
	}

	var draft model.ProfileDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	idToken, err := store.IDToken(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	state := store.Snapshot()
	exists := state.Profile != nil && state.Profile.UserExist

	if err := h.service.Save(r.Context(), idToken, exists, &draft); err != nil {
		handleServiceError(w, err)
		return
	}

	store.RefreshProfile(r.Context())

	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}
