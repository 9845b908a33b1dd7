package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// HTTPConfig configures the HTTPClient.
type HTTPConfig struct {
	// BaseURL is the reporting backend root.
	BaseURL string
	// HTTPClient defaults to a 10s-timeout client.
	HTTPClient *http.Client
}

// HTTPClient talks JSON to the reporting backend.
type HTTPClient struct {
	config HTTPConfig
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(config HTTPConfig) *HTTPClient {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{config: config}
}

// FetchUserInfo posts the ID token to the user-info endpoint.
func (c *HTTPClient) FetchUserInfo(ctx context.Context, idToken string) (*model.Profile, error) {
	var profile model.Profile
	err := c.do(ctx, http.MethodPost, PathUserInfo, "", map[string]string{"idToken": idToken}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateUser creates the application user record.
func (c *HTTPClient) CreateUser(ctx context.Context, idToken string, draft *model.ProfileDraft) error {
	return c.do(ctx, http.MethodPost, PathUser, idToken, draft, nil)
}

// UpdateUser persists edited profile fields.
func (c *HTTPClient) UpdateUser(ctx context.Context, idToken string, draft *model.ProfileDraft) error {
	return c.do(ctx, http.MethodPut, PathUser, idToken, draft, nil)
}

// CreateReport submits a pothole report.
func (c *HTTPClient) CreateReport(ctx context.Context, idToken string, report *model.Report) (*model.Report, error) {
	var created model.Report
	if err := c.do(ctx, http.MethodPost, PathPothole, idToken, report, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListReports returns the caller's reports.
func (c *HTTPClient) ListReports(ctx context.Context, idToken string) ([]model.Report, error) {
	var reports []model.Report
	if err := c.do(ctx, http.MethodGet, PathPotholeList, idToken, nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport returns one report by ID.
func (c *HTTPClient) GetReport(ctx context.Context, idToken, reportID string) (*model.Report, error) {
	var report model.Report
	path := fmt.Sprintf(PathPotholeByID, url.PathEscape(reportID))
	if err := c.do(ctx, http.MethodGet, path, idToken, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteReport removes one of the caller's reports.
func (c *HTTPClient) DeleteReport(ctx context.Context, idToken, reportID string) error {
	path := fmt.Sprintf(PathPotholeByID, url.PathEscape(reportID))
	return c.do(ctx, http.MethodDelete, path, idToken, nil, nil)
}

// Leaderboard returns the constituency leaderboard.
func (c *HTTPClient) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, PathLeaderboard, "", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ConstituencyByLocation resolves the constituency at a coordinate.
func (c *HTTPClient) ConstituencyByLocation(ctx context.Context, lat, lng float64) (*model.Constituency, error) {
	path := PathConstituency + "?lat=" + strconv.FormatFloat(lat, 'f', 6, 64) +
		"&lng=" + strconv.FormatFloat(lng, 'f', 6, 64)
	var constituency model.Constituency
	if err := c.do(ctx, http.MethodGet, path, "", nil, &constituency); err != nil {
		return nil, err
	}
	return &constituency, nil
}

// do performs one JSON request. Non-2xx responses become *StatusError.
func (c *HTTPClient) do(ctx context.Context, method, path, idToken string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse backend response: %w", err)
		}
	}
	return nil
}

// compile-time interface check
var _ Client = (*HTTPClient)(nil)
