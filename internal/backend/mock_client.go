package backend

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// MockClient is the in-memory stand-in for the reporting backend, used in
// development when no backend URL is configured. Reads return fixed sample
// tables after a configurable delay; writes mutate in-memory state so the
// full sign-up → complete-profile → report flow works end to end.
type MockClient struct {
	delay time.Duration

	mu      sync.Mutex
	users   map[string]*model.UserDetail // keyed by identity UID
	reports map[string][]model.Report    // keyed by identity UID
}

// NewMockClient creates a MockClient whose reads resolve after delay.
func NewMockClient(delay time.Duration) *MockClient {
	return &MockClient{
		delay:   delay,
		users:   make(map[string]*model.UserDetail),
		reports: make(map[string][]model.Report),
	}
}

// sampleReports mirrors the sample data the dashboard ships with.
func sampleReports(uid string) []model.Report {
	return []model.Report{
		{
			ID:          uuid.NewString(),
			UserID:      uid,
			Location:    "MG Road, Bangalore",
			Latitude:    12.975604,
			Longitude:   77.605848,
			Description: "Deep pothole near the metro station exit.",
			Status:      model.ReportStatusPending,
			ImageURL:    "https://images.example.com/potholes/mg-road.jpg",
			ReportedAt:  time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:          uuid.NewString(),
			UserID:      uid,
			Location:    "Brigade Road, Bangalore",
			Latitude:    12.971891,
			Longitude:   77.607788,
			Description: "Cluster of potholes after the junction.",
			Status:      model.ReportStatusReviewed,
			ImageURL:    "https://images.example.com/potholes/brigade-road.jpg",
			ReportedAt:  time.Date(2024, 1, 10, 18, 5, 0, 0, time.UTC),
		},
	}
}

var sampleLeaderboard = []model.LeaderboardEntry{
	{ID: "1", Name: "Bangalore South", Constituency: "Bangalore South", Type: model.ConstituencyTypeMP, ReportsCount: 245, ResolvedCount: 198, Score: 81},
	{ID: "2", Name: "Jayanagar", Constituency: "Jayanagar", Type: model.ConstituencyTypeMLA, ReportsCount: 189, ResolvedCount: 142, Score: 75},
	{ID: "3", Name: "Bangalore Central", Constituency: "Bangalore Central", Type: model.ConstituencyTypeMP, ReportsCount: 167, ResolvedCount: 118, Score: 71},
	{ID: "4", Name: "Shivajinagar", Constituency: "Shivajinagar", Type: model.ConstituencyTypeMLA, ReportsCount: 134, ResolvedCount: 87, Score: 65},
}

// FetchUserInfo returns the profile for the token's identity. An identity
// with no created user record yields user_exist=false, not an error.
func (m *MockClient) FetchUserInfo(ctx context.Context, idToken string) (*model.Profile, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	uid := subjectOf(idToken)
	m.mu.Lock()
	defer m.mu.Unlock()

	profile := &model.Profile{
		UID:       uid,
		Timestamp: time.Now(),
	}
	if detail, ok := m.users[uid]; ok {
		profile.DisplayName = detail.DisplayName
		profile.Email = detail.Email
		profile.CreatedAt = detail.CreatedAt
		profile.Message = "user found"
		profile.UserExist = true
		profile.User = *detail
	} else {
		profile.Message = "user does not exist"
	}
	return profile, nil
}

// CreateUser creates the in-memory user record.
func (m *MockClient) CreateUser(ctx context.Context, idToken string, draft *model.ProfileDraft) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}

	uid := subjectOf(idToken)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[uid] = &model.UserDetail{
		UID:           uid,
		DisplayName:   draft.DisplayName,
		CreatedAt:     time.Now(),
		ShowAnonymous: draft.ShowAnonymous,
		IsActive:      draft.IsActive,
		Level:         1,
	}
	return nil
}

// UpdateUser updates the in-memory user record.
func (m *MockClient) UpdateUser(ctx context.Context, idToken string, draft *model.ProfileDraft) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}

	uid := subjectOf(idToken)
	m.mu.Lock()
	defer m.mu.Unlock()

	detail, ok := m.users[uid]
	if !ok {
		return &StatusError{Status: http.StatusNotFound, Body: "user not found"}
	}
	detail.DisplayName = draft.DisplayName
	detail.ShowAnonymous = draft.ShowAnonymous
	detail.IsActive = draft.IsActive
	return nil
}

// CreateReport stores the report in memory.
func (m *MockClient) CreateReport(ctx context.Context, idToken string, report *model.Report) (*model.Report, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	uid := subjectOf(idToken)
	created := *report
	created.ID = uuid.NewString()
	created.UserID = uid
	created.Status = model.ReportStatusPending
	created.ReportedAt = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[uid] = append([]model.Report{created}, m.reports[uid]...)
	if detail, ok := m.users[uid]; ok {
		detail.ReportsCount++
		detail.ExpPoints += 10
	}
	return &created, nil
}

// ListReports returns the identity's reports, seeding the sample table on
// first access.
func (m *MockClient) ListReports(ctx context.Context, idToken string) ([]model.Report, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	uid := subjectOf(idToken)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[uid]; !ok {
		m.reports[uid] = sampleReports(uid)
	}
	out := make([]model.Report, len(m.reports[uid]))
	copy(out, m.reports[uid])
	return out, nil
}

// GetReport returns one of the identity's reports by ID.
func (m *MockClient) GetReport(ctx context.Context, idToken, reportID string) (*model.Report, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	uid := subjectOf(idToken)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, report := range m.reports[uid] {
		if report.ID == reportID {
			found := report
			return &found, nil
		}
	}
	return nil, &StatusError{Status: http.StatusNotFound, Body: "report not found"}
}

// DeleteReport removes one of the identity's reports.
func (m *MockClient) DeleteReport(ctx context.Context, idToken, reportID string) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}

	uid := subjectOf(idToken)
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := m.reports[uid]
	for i, report := range reports {
		if report.ID == reportID {
			m.reports[uid] = append(reports[:i], reports[i+1:]...)
			return nil
		}
	}
	return &StatusError{Status: http.StatusNotFound, Body: "report not found"}
}

// Leaderboard returns the sample leaderboard.
func (m *MockClient) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	out := make([]model.LeaderboardEntry, len(sampleLeaderboard))
	copy(out, sampleLeaderboard)
	return out, nil
}

// ConstituencyByLocation returns a fixed constituency.
func (m *MockClient) ConstituencyByLocation(ctx context.Context, lat, lng float64) (*model.Constituency, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}

	return &model.Constituency{
		ID:    "ka-174",
		Name:  "Bangalore South",
		Type:  model.ConstituencyTypeMP,
		State: "Karnataka",
	}, nil
}

// sleep simulates backend latency, honoring cancellation.
func (m *MockClient) sleep(ctx context.Context) error {
	if m.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// subjectOf derives a stable user key from an ID token. Real tokens are
// JWTs carrying the uid in the sub claim; opaque test tokens key as-is.
func subjectOf(idToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			return sub
		}
	}
	return idToken
}

// compile-time interface check
var _ Client = (*MockClient)(nil)
