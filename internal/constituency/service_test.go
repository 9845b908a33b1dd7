package constituency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

type mockBackend struct {
	backend.Client
	byLocationFn func(ctx context.Context, lat, lng float64) (*model.Constituency, error)
}

func (m *mockBackend) ConstituencyByLocation(ctx context.Context, lat, lng float64) (*model.Constituency, error) {
	return m.byLocationFn(ctx, lat, lng)
}

func newTestService(client backend.Client) *Service {
	return NewService(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLookup_ResolvesConstituency(t *testing.T) {
	client := &mockBackend{
		byLocationFn: func(ctx context.Context, lat, lng float64) (*model.Constituency, error) {
			if lat != 12.9716 || lng != 77.5946 {
				t.Errorf("coordinate = %f,%f, want 12.9716,77.5946", lat, lng)
			}
			return &model.Constituency{ID: "c1", Name: "Shivajinagar", Type: model.ConstituencyTypeMLA, State: "Karnataka"}, nil
		},
	}
	svc := newTestService(client)

	c, err := svc.Lookup(context.Background(), 12.9716, 77.5946)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if c.Name != "Shivajinagar" {
		t.Errorf("Name = %q, want Shivajinagar", c.Name)
	}
}

func TestLookup_RejectsOutOfRangeCoordinates(t *testing.T) {
	client := &mockBackend{
		byLocationFn: func(ctx context.Context, lat, lng float64) (*model.Constituency, error) {
			t.Error("backend called for an out-of-range coordinate")
			return nil, nil
		},
	}
	svc := newTestService(client)

	coords := [][2]float64{
		{91, 0},
		{-91, 0},
		{0, 181},
		{0, -181},
	}
	for _, c := range coords {
		_, err := svc.Lookup(context.Background(), c[0], c[1])
		// The rejection must surface as a validation error, not an
		// internal one.
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
			t.Errorf("Lookup(%f, %f) error = %v, want code %s", c[0], c[1], err, model.ErrCodeInvalidRequest)
		}
	}
}

func TestLookup_BackendFailure(t *testing.T) {
	client := &mockBackend{
		byLocationFn: func(ctx context.Context, lat, lng float64) (*model.Constituency, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestService(client)

	_, err := svc.Lookup(context.Background(), 12.9716, 77.5946)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeBackendUnavailable {
		t.Errorf("Lookup() error = %v, want code %s", err, model.ErrCodeBackendUnavailable)
	}
}
