package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// LeaderboardServiceInterface is the service surface the civic handler
// needs for the leaderboard.
type LeaderboardServiceInterface interface {
	List(ctx context.Context, typ model.ConstituencyType) ([]model.LeaderboardEntry, error)
}

// ConstituencyServiceInterface is the service surface the civic handler
// needs for constituency lookup.
type ConstituencyServiceInterface interface {
	Lookup(ctx context.Context, lat, lng float64) (*model.Constituency, error)
}

// CivicHandler serves the leaderboard and constituency endpoints.
type CivicHandler struct {
	leaderboard  LeaderboardServiceInterface
	constituency ConstituencyServiceInterface
}

// NewCivicHandler creates a CivicHandler.
func NewCivicHandler(leaderboard LeaderboardServiceInterface, constituency ConstituencyServiceInterface) *CivicHandler {
	return &CivicHandler{
		leaderboard:  leaderboard,
		constituency: constituency,
	}
}

// Leaderboard returns the constituency leaderboard, best score first.
// GET /api/leaderboard?type=MLA|MP
func (h *CivicHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	typ := model.ConstituencyType(r.URL.Query().Get("type"))

	entries, err := h.leaderboard.List(r.Context(), typ)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Constituency resolves the constituency at a coordinate.
// GET /api/constituency?lat=12.97&lng=77.59
func (h *CivicHandler) Constituency(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(
			"lat and lng query parameters are required numbers.",
			"Pass the coordinate as ?lat=..&lng=..",
		))
		return
	}

	c, err := h.constituency.Lookup(r.Context(), lat, lng)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}
