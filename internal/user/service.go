// Package user provides the profile view and profile edit domain logic.
package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/security"
)

// expPerLevel is the backend's level step. Used only to derive the
// progress figure shown on the profile page.
const expPerLevel = 100

// ProfileView is the profile page payload with derived stats.
type ProfileView struct {
	UID           string `json:"uid"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	ShowAnonymous bool   `json:"show_anonymous"`
	IsActive      bool   `json:"is_active"`
	ExpPoints     int    `json:"exp_points"`
	Level         int    `json:"level"`
	ReportsCount  int    `json:"reports_count"`
	NextLevelAt   int    `json:"next_level_at"`
	LevelProgress int    `json:"level_progress"`
}

// Service is the user domain service. It shapes the profile view and
// persists profile edits through the backend user endpoints.
type Service struct {
	client    backend.Client
	sanitizer security.TextSanitizerService
	guard     security.PhotoURLGuardService
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService creates a new user Service instance.
func NewService(client backend.Client, sanitizer security.TextSanitizerService, guard security.PhotoURLGuardService, logger *slog.Logger) *Service {
	return &Service{
		client:    client,
		sanitizer: sanitizer,
		guard:     guard,
		validate:  validator.New(),
		logger:    logger,
	}
}

// View derives the profile page payload from a fetched profile. The
// identity fills the gaps when the backend record does not exist yet.
func (s *Service) View(identity *model.Identity, profile *model.Profile) *ProfileView {
	view := &ProfileView{
		UID:         identity.UID,
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
	}

	if profile == nil || !profile.UserExist {
		return view
	}

	u := profile.User
	view.DisplayName = u.DisplayName
	view.ShowAnonymous = u.ShowAnonymous
	view.IsActive = u.IsActive
	view.ExpPoints = u.ExpPoints
	view.Level = u.Level
	view.ReportsCount = u.ReportsCount
	view.NextLevelAt = (u.Level + 1) * expPerLevel
	if view.NextLevelAt > 0 {
		view.LevelProgress = u.ExpPoints * 100 / view.NextLevelAt
	}
	return view
}

// Save persists a profile edit. A fresh identity with no backend record
// gets a create, everyone else an update. The caller refreshes the
// session profile afterwards so the next snapshot reflects the save.
func (s *Service) Save(ctx context.Context, idToken string, exists bool, draft *model.ProfileDraft) error {
	// 1. Structural validation
	if err := s.validate.Struct(draft); err != nil {
		return model.NewInvalidProfileError(validationReason(err))
	}

	// 2. Sanitize free text
	draft.DisplayName = s.sanitizer.Sanitize(draft.DisplayName)
	draft.Bio = s.sanitizer.Sanitize(draft.Bio)
	if draft.DisplayName == "" {
		return model.NewInvalidProfileError("display name is empty after sanitization")
	}

	// 3. Vet the photo URL before it is stored anywhere
	if draft.PhotoURL != nil && *draft.PhotoURL != "" {
		if err := s.guard.ValidateURL(*draft.PhotoURL); err != nil {
			s.logger.Warn("photo URL rejected", "error", err)
			return model.NewUnsafePhotoURLError()
		}
	}

	// 4. Persist through the backend
	var err error
	if exists {
		err = s.client.UpdateUser(ctx, idToken, draft)
	} else {
		err = s.client.CreateUser(ctx, idToken, draft)
	}
	if err != nil {
		s.logger.Error("profile save failed", "exists", exists, "error", err)
		return model.NewBackendUnavailableError("profile save failed")
	}

	s.logger.Info("profile saved", "created", !exists)
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
