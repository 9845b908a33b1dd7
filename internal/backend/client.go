// Package backend is the client for the external pothole-reporting backend.
package backend

import (
	"context"
	"fmt"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// API paths on the reporting backend.
const (
	PathUser         = "/api/users"
	PathUserInfo     = "/api/users/info"
	PathAuthVerify   = "/api/auth"
	PathPothole      = "/api/potholes"
	PathPotholeList  = "/api/potholes/list"
	PathPotholeByID  = "/api/potholes/%s"
	PathLeaderboard  = "/api/leaderboard"
	PathConstituency = "/api/constituency"
)

// StatusError is a non-2xx response from the backend. Callers classify on
// the status code; the body is kept for logging.
type StatusError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// Client is the transport to the reporting backend. All operations carry the
// caller's identity ID token. Each method performs a single attempt; retry
// policy belongs to the caller.
type Client interface {
	// FetchUserInfo posts the ID token to the user-info endpoint and returns
	// the profile record. A missing profile is a *StatusError with status 404.
	FetchUserInfo(ctx context.Context, idToken string) (*model.Profile, error)

	// CreateUser creates the application user record for a fresh identity.
	CreateUser(ctx context.Context, idToken string, draft *model.ProfileDraft) error

	// UpdateUser persists edited profile fields.
	UpdateUser(ctx context.Context, idToken string, draft *model.ProfileDraft) error

	// CreateReport submits a pothole report and returns it with backend fields set.
	CreateReport(ctx context.Context, idToken string, report *model.Report) (*model.Report, error)

	// ListReports returns the caller's reports, newest first.
	ListReports(ctx context.Context, idToken string) ([]model.Report, error)

	// GetReport returns one report by ID. Missing reports are a 404 *StatusError.
	GetReport(ctx context.Context, idToken, reportID string) (*model.Report, error)

	// DeleteReport removes one of the caller's reports.
	DeleteReport(ctx context.Context, idToken, reportID string) error

	// Leaderboard returns the constituency leaderboard, unordered.
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)

	// ConstituencyByLocation resolves the constituency at a coordinate.
	ConstituencyByLocation(ctx context.Context, lat, lng float64) (*model.Constituency, error)
}
