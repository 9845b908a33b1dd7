// Package constituency resolves electoral constituencies from coordinates.
package constituency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// Service looks up the constituency covering a coordinate.
type Service struct {
	client backend.Client
	logger *slog.Logger
}

// NewService creates a new constituency Service instance.
func NewService(client backend.Client, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// Lookup resolves the constituency at the given coordinate.
func (s *Service) Lookup(ctx context.Context, lat, lng float64) (*model.Constituency, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, model.NewInvalidRequestError(
			fmt.Sprintf("The coordinate is out of range: lat=%g lng=%g.", lat, lng),
			"Pass a latitude in [-90, 90] and a longitude in [-180, 180].",
		)
	}

	c, err := s.client.ConstituencyByLocation(ctx, lat, lng)
	if err != nil {
		s.logger.Error("constituency lookup failed", "lat", lat, "lng", lng, "error", err)
		return nil, model.NewBackendUnavailableError("could not resolve the constituency")
	}
	return c, nil
}
