package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/security"
)

// --- mocks ---

type mockBackend struct {
	backend.Client
	createReportFn func(ctx context.Context, idToken string, report *model.Report) (*model.Report, error)
	listReportsFn  func(ctx context.Context, idToken string) ([]model.Report, error)
	getReportFn    func(ctx context.Context, idToken, reportID string) (*model.Report, error)
	deleteReportFn func(ctx context.Context, idToken, reportID string) error
}

func (m *mockBackend) CreateReport(ctx context.Context, idToken string, report *model.Report) (*model.Report, error) {
	return m.createReportFn(ctx, idToken, report)
}

func (m *mockBackend) ListReports(ctx context.Context, idToken string) ([]model.Report, error) {
	return m.listReportsFn(ctx, idToken)
}

func (m *mockBackend) GetReport(ctx context.Context, idToken, reportID string) (*model.Report, error) {
	return m.getReportFn(ctx, idToken, reportID)
}

func (m *mockBackend) DeleteReport(ctx context.Context, idToken, reportID string) error {
	return m.deleteReportFn(ctx, idToken, reportID)
}

type mockCollector struct {
	submitted int
}

func (m *mockCollector) RecordReportSubmitted() {
	m.submitted++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validDraft() *Draft {
	return &Draft{
		Location:    "MG Road, Bengaluru",
		Latitude:    12.9716,
		Longitude:   77.5946,
		Description: "Deep pothole near the bus stop, dangerous for two-wheelers.",
	}
}

func newTestService(client backend.Client, collector *mockCollector) *Service {
	return NewService(client, security.NewTextSanitizer(), collector, 1024, discardLogger())
}

// --- tests ---

func TestSubmit_ForwardsSanitizedReport(t *testing.T) {
	var forwarded *model.Report
	client := &mockBackend{
		createReportFn: func(ctx context.Context, idToken string, report *model.Report) (*model.Report, error) {
			if idToken != "id-token" {
				t.Errorf("idToken = %q, want id-token", idToken)
			}
			forwarded = report
			created := *report
			created.ID = "rep-1"
			return &created, nil
		},
	}
	collector := &mockCollector{}
	svc := newTestService(client, collector)

	draft := validDraft()
	draft.Description = "Deep pothole <script>alert(1)</script> near the bus stop."

	created, err := svc.Submit(context.Background(), "id-token", draft)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if created.ID != "rep-1" {
		t.Errorf("created.ID = %q, want rep-1", created.ID)
	}
	if strings.Contains(forwarded.Description, "<script>") {
		t.Errorf("description = %q, want markup stripped", forwarded.Description)
	}
	if forwarded.Status != model.ReportStatusPending {
		t.Errorf("status = %q, want %q", forwarded.Status, model.ReportStatusPending)
	}
	if collector.submitted != 1 {
		t.Errorf("submissions recorded = %d, want 1", collector.submitted)
	}
}

func TestSubmit_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
	}{
		{"missing location", func(d *Draft) { d.Location = "" }},
		{"location too short", func(d *Draft) { d.Location = "ab" }},
		{"missing description", func(d *Draft) { d.Description = "" }},
		{"description too short", func(d *Draft) { d.Description = "short" }},
		{"latitude out of range", func(d *Draft) { d.Latitude = 123.0 }},
		{"longitude out of range", func(d *Draft) { d.Longitude = 999.0 }},
	}
	client := &mockBackend{
		createReportFn: func(ctx context.Context, idToken string, report *model.Report) (*model.Report, error) {
			t.Error("CreateReport called for an invalid draft")
			return nil, nil
		},
	}
	svc := newTestService(client, &mockCollector{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			tt.mutate(draft)

			_, err := svc.Submit(context.Background(), "id-token", draft)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidReport {
				t.Errorf("Submit() error = %v, want code %s", err, model.ErrCodeInvalidReport)
			}
		})
	}
}

func TestSubmit_ImageChecks(t *testing.T) {
	client := &mockBackend{
		createReportFn: func(ctx context.Context, idToken string, report *model.Report) (*model.Report, error) {
			return report, nil
		},
	}
	svc := newTestService(client, &mockCollector{})

	// Over the size cap.
	draft := validDraft()
	draft.ImageData = "data:image/jpeg;base64," + strings.Repeat("A", 2048)
	if _, err := svc.Submit(context.Background(), "id-token", draft); err == nil {
		t.Error("Submit() error = nil for oversized image, want invalid-report error")
	}

	// Not a data URL.
	draft = validDraft()
	draft.ImageData = "https://example.com/pothole.jpg"
	if _, err := svc.Submit(context.Background(), "id-token", draft); err == nil {
		t.Error("Submit() error = nil for non-data-URL image, want invalid-report error")
	}

	// A small data URL passes.
	draft = validDraft()
	draft.ImageData = "data:image/png;base64,iVBORw0KGgo="
	if _, err := svc.Submit(context.Background(), "id-token", draft); err != nil {
		t.Errorf("Submit() error = %v for a valid image, want nil", err)
	}
}

func TestSubmit_DescriptionEmptyAfterSanitization(t *testing.T) {
	svc := newTestService(&mockBackend{}, &mockCollector{})

	draft := validDraft()
	draft.Description = "<div><span><b></b></span></div>"

	_, err := svc.Submit(context.Background(), "id-token", draft)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidReport {
		t.Errorf("Submit() error = %v, want code %s", err, model.ErrCodeInvalidReport)
	}
}

func TestSubmit_BackendFailure(t *testing.T) {
	client := &mockBackend{
		createReportFn: func(ctx context.Context, idToken string, report *model.Report) (*model.Report, error) {
			return nil, errors.New("connection refused")
		},
	}
	collector := &mockCollector{}
	svc := newTestService(client, collector)

	_, err := svc.Submit(context.Background(), "id-token", validDraft())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeBackendUnavailable {
		t.Errorf("Submit() error = %v, want code %s", err, model.ErrCodeBackendUnavailable)
	}
	if collector.submitted != 0 {
		t.Errorf("submissions recorded = %d, want 0 on failure", collector.submitted)
	}
}

func TestGet_MapsNotFound(t *testing.T) {
	client := &mockBackend{
		getReportFn: func(ctx context.Context, idToken, reportID string) (*model.Report, error) {
			return nil, &backend.StatusError{Status: http.StatusNotFound, Body: "report not found"}
		},
	}
	svc := newTestService(client, &mockCollector{})

	_, err := svc.Get(context.Background(), "id-token", "rep-missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeReportNotFound {
		t.Errorf("Get() error = %v, want code %s", err, model.ErrCodeReportNotFound)
	}
}

func TestDelete_MapsErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"not found", &backend.StatusError{Status: http.StatusNotFound, Body: "gone"}, model.ErrCodeReportNotFound},
		{"backend down", errors.New("connection refused"), model.ErrCodeBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockBackend{
				deleteReportFn: func(ctx context.Context, idToken, reportID string) error {
					return tt.err
				},
			}
			svc := newTestService(client, &mockCollector{})

			err := svc.Delete(context.Background(), "id-token", "rep-1")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Errorf("Delete() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestListMine_PassesThrough(t *testing.T) {
	client := &mockBackend{
		listReportsFn: func(ctx context.Context, idToken string) ([]model.Report, error) {
			return []model.Report{{ID: "rep-2"}, {ID: "rep-1"}}, nil
		},
	}
	svc := newTestService(client, &mockCollector{})

	reports, err := svc.ListMine(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(reports) != 2 || reports[0].ID != "rep-2" {
		t.Errorf("reports = %+v, want the backend's order preserved", reports)
	}
}
