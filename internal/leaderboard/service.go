// Package leaderboard provides the constituency leaderboard view.
package leaderboard

import (
	"context"
	"log/slog"
	"sort"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// Service orders and filters the leaderboard the backend computes.
// Scores never change here; this layer only shapes the view.
type Service struct {
	client backend.Client
	logger *slog.Logger
}

// NewService creates a new leaderboard Service instance.
func NewService(client backend.Client, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// List returns the leaderboard sorted by score descending. When typ is a
// valid constituency type only matching entries are returned; an empty or
// unknown typ returns everything.
func (s *Service) List(ctx context.Context, typ model.ConstituencyType) ([]model.LeaderboardEntry, error) {
	entries, err := s.client.Leaderboard(ctx)
	if err != nil {
		s.logger.Error("leaderboard fetch failed", "error", err)
		return nil, model.NewBackendUnavailableError("could not load the leaderboard")
	}

	if typ == model.ConstituencyTypeMLA || typ == model.ConstituencyTypeMP {
		filtered := make([]model.LeaderboardEntry, 0, len(entries))
		for _, e := range entries {
			if e.Type == typ {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	// Stable so equal scores keep the backend's order
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return entries, nil
}
