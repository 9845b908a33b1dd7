// Package report provides the domain logic for pothole reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/security"
)

// Draft holds the fields submitted with a new pothole report.
type Draft struct {
	Location    string  `json:"location" validate:"required,min=3,max=200"`
	Latitude    float64 `json:"latitude" validate:"required,latitude"`
	Longitude   float64 `json:"longitude" validate:"required,longitude"`
	Description string  `json:"description" validate:"required,min=10,max=1000"`
	ImageData   string  `json:"image_data" validate:"omitempty"`
}

// Collector records report submission metrics.
type Collector interface {
	RecordReportSubmitted()
}

// Service is the report domain service. It validates and sanitizes
// submissions before forwarding them to the reporting backend.
type Service struct {
	client    backend.Client
	sanitizer security.TextSanitizerService
	validate  *validator.Validate
	collector Collector
	maxImage  int64
	logger    *slog.Logger
}

// NewService creates a new report Service instance.
func NewService(client backend.Client, sanitizer security.TextSanitizerService, collector Collector, maxImageBytes int64, logger *slog.Logger) *Service {
	return &Service{
		client:    client,
		sanitizer: sanitizer,
		validate:  validator.New(),
		collector: collector,
		maxImage:  maxImageBytes,
		logger:    logger,
	}
}

// Submit validates a report draft and forwards it to the backend.
// The description and location are stripped of markup first; the image
// data URL is size-capped but otherwise passed through untouched.
func (s *Service) Submit(ctx context.Context, idToken string, draft *Draft) (*model.Report, error) {
	// 1. Structural validation
	if err := s.validate.Struct(draft); err != nil {
		return nil, model.NewInvalidReportError(validationReason(err))
	}

	// 2. Image size cap; encoding stays opaque to the gateway
	if int64(len(draft.ImageData)) > s.maxImage {
		return nil, model.NewInvalidReportError(fmt.Sprintf("image exceeds the %d byte limit", s.maxImage))
	}
	if draft.ImageData != "" && !strings.HasPrefix(draft.ImageData, "data:image/") {
		return nil, model.NewInvalidReportError("image must be an image data URL")
	}

	// 3. Sanitize free text
	rep := &model.Report{
		Location:    s.sanitizer.Sanitize(draft.Location),
		Latitude:    draft.Latitude,
		Longitude:   draft.Longitude,
		Description: s.sanitizer.Sanitize(draft.Description),
		Status:      model.ReportStatusPending,
		ImageURL:    draft.ImageData,
	}
	if rep.Description == "" {
		return nil, model.NewInvalidReportError("description is empty after sanitization")
	}

	// 4. Forward to the backend
	created, err := s.client.CreateReport(ctx, idToken, rep)
	if err != nil {
		s.logger.Error("report submission failed", "error", err)
		return nil, model.NewBackendUnavailableError("report submission failed")
	}

	s.collector.RecordReportSubmitted()
	s.logger.Info("report submitted", "report_id", created.ID)
	return created, nil
}

// ListMine returns the caller's reports, newest first.
func (s *Service) ListMine(ctx context.Context, idToken string) ([]model.Report, error) {
	reports, err := s.client.ListReports(ctx, idToken)
	if err != nil {
		s.logger.Error("report list failed", "error", err)
		return nil, model.NewBackendUnavailableError("could not load reports")
	}
	return reports, nil
}

// Get returns one of the caller's reports by ID.
func (s *Service) Get(ctx context.Context, idToken, reportID string) (*model.Report, error) {
	rep, err := s.client.GetReport(ctx, idToken, reportID)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == 404 {
			return nil, model.NewReportNotFoundError(reportID)
		}
		s.logger.Error("report fetch failed", "report_id", reportID, "error", err)
		return nil, model.NewBackendUnavailableError("could not load the report")
	}
	return rep, nil
}

// Delete removes one of the caller's reports.
func (s *Service) Delete(ctx context.Context, idToken, reportID string) error {
	if err := s.client.DeleteReport(ctx, idToken, reportID); err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == 404 {
			return model.NewReportNotFoundError(reportID)
		}
		s.logger.Error("report delete failed", "report_id", reportID, "error", err)
		return model.NewBackendUnavailableError("could not delete the report")
	}
	s.logger.Info("report deleted", "report_id", reportID)
	return nil
}

// validationReason flattens a validator error into one user-facing line.
func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = strings.ToLower(fe.Field())
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
