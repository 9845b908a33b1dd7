package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishna-ananth-vk/potholed/internal/middleware"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/report"
)

// ReportServiceInterface is the service surface the report handler needs.
type ReportServiceInterface interface {
	Submit(ctx context.Context, idToken string, draft *report.Draft) (*model.Report, error)
	ListMine(ctx context.Context, idToken string) ([]model.Report, error)
	Get(ctx context.Context, idToken, reportID string) (*model.Report, error)
	Delete(ctx context.Context, idToken, reportID string) error
}

// ReportHandler serves the pothole report endpoints.
type ReportHandler struct {
	service ReportServiceInterface
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(service ReportServiceInterface) *ReportHandler {
	return &ReportHandler{service: service}
}

// Submit accepts a new pothole report.
// POST /api/potholes
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	idToken, ok := h.idToken(w, r)
	if !ok {
		return
	}

	var draft report.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Submit(r.Context(), idToken, &draft)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListMine returns the caller's reports.
// GET /api/potholes
func (h *ReportHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	idToken, ok := h.idToken(w, r)
	if !ok {
		return
	}

	reports, err := h.service.ListMine(r.Context(), idToken)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// Get returns one report.
// GET /api/potholes/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	idToken, ok := h.idToken(w, r)
	if !ok {
		return
	}

	reportID := chi.URLParam(r, "id")
	rep, err := h.service.Get(r.Context(), idToken, reportID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// Delete removes one report.
// DELETE /api/potholes/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	idToken, ok := h.idToken(w, r)
	if !ok {
		return
	}

	reportID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), idToken, reportID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// idToken pulls a valid ID token for the request's session. Writes the
// error response itself when the session is unusable.
func (h *ReportHandler) idToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	store, err := middleware.StoreFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotSignedInError())
		return "", false
	}

	idToken, err := store.IDToken(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return "", false
	}
	return idToken, true
}
