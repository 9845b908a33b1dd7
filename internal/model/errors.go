package model

import (
	"errors"
	"fmt"
)

// APIError is the unified error format surfaced to the client. It carries
// the cause category and a user-facing recovery hint.
type APIError struct {
	Code     string // stable error code
	Message  string // human-readable message
	Category string // category: auth, validation, profile, report, system
	Action   string // what the user can do about it
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Error categories.
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryProfile    = "profile"
	CategoryReport     = "report"
	CategorySystem     = "system"
)

// Defined error codes.
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	ErrCodeUnknownEmail       = "UNKNOWN_EMAIL"
	ErrCodeAccountDisabled    = "ACCOUNT_DISABLED"
	ErrCodeFederatedFailed    = "FEDERATED_SIGNIN_FAILED"
	ErrCodeNotSignedIn        = "NOT_SIGNED_IN"
	ErrCodeProfileFetchFailed = "PROFILE_FETCH_FAILED"
	ErrCodeInvalidReport      = "INVALID_REPORT"
	ErrCodeInvalidProfile     = "INVALID_PROFILE"
	ErrCodeReportNotFound     = "REPORT_NOT_FOUND"
	ErrCodeUnsafePhotoURL     = "UNSAFE_PHOTO_URL"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// IsAuthError reports whether err is a user-facing authentication error.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == CategoryAuth
}

// IsFetchError reports whether err is a profile/backend retrieval failure.
func IsFetchError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrCodeProfileFetchFailed || apiErr.Code == ErrCodeBackendUnavailable
}

// NewInvalidRequestError is returned when client-supplied input fails a
// basic validity check before reaching any backend.
func NewInvalidRequestError(reason, action string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: CategoryValidation,
		Action:   action,
	}
}

// NewInvalidCredentialsError is returned on a failed password sign-in.
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "The email or password is incorrect.",
		Category: CategoryAuth,
		Action:   "Check your credentials and try again, or reset your password.",
	}
}

// NewDuplicateAccountError is returned when signing up with a taken email.
func NewDuplicateAccountError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateAccount,
		Message:  fmt.Sprintf("An account already exists for %s.", email),
		Category: CategoryAuth,
		Action:   "Log in instead, or reset your password if you forgot it.",
	}
}

// NewUnknownEmailError is returned when requesting a password reset for an
// email the identity service does not know.
func NewUnknownEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownEmail,
		Message:  fmt.Sprintf("No account found for %s.", email),
		Category: CategoryAuth,
		Action:   "Check the email address or sign up for a new account.",
	}
}

// NewAccountDisabledError is returned when the identity service reports the
// account as disabled or banned.
func NewAccountDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountDisabled,
		Message:  "This account has been disabled.",
		Category: CategoryAuth,
		Action:   "Contact support if you believe this is a mistake.",
	}
}

// NewFederatedSignInError is returned when the Google sign-in flow fails or
// is cancelled by the user.
func NewFederatedSignInError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFederatedFailed,
		Message:  fmt.Sprintf("Google sign-in did not complete: %s", reason),
		Category: CategoryAuth,
		Action:   "Try signing in with Google again, or use email and password.",
	}
}

// NewNotSignedInError is returned for operations that need an active identity.
func NewNotSignedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotSignedIn,
		Message:  "You are not signed in.",
		Category: CategoryAuth,
		Action:   "Log in and try again.",
	}
}

// NewProfileFetchError is returned when the profile could not be retrieved
// from the reporting backend after retries.
func NewProfileFetchError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileFetchFailed,
		Message:  fmt.Sprintf("Could not load your profile: %s", reason),
		Category: CategoryProfile,
		Action:   "Reload the page to try again.",
	}
}

// NewInvalidReportError is returned when a pothole report fails validation.
func NewInvalidReportError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReport,
		Message:  fmt.Sprintf("The report is invalid: %s", reason),
		Category: CategoryValidation,
		Action:   "Fix the highlighted fields and submit again.",
	}
}

// NewInvalidProfileError is returned when a profile edit fails validation.
func NewInvalidProfileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  fmt.Sprintf("The profile is invalid: %s", reason),
		Category: CategoryValidation,
		Action:   "Fix the highlighted fields and save again.",
	}
}

// NewReportNotFoundError is returned when a report does not exist or does
// not belong to the requesting user.
func NewReportNotFoundError(reportID string) *APIError {
	return &APIError{
		Code:     ErrCodeReportNotFound,
		Message:  fmt.Sprintf("Report not found: %s", reportID),
		Category: CategoryReport,
		Action:   "Refresh your report list.",
	}
}

// NewUnsafePhotoURLError is returned when a profile photo URL is rejected
// by the outbound URL policy.
func NewUnsafePhotoURLError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsafePhotoURL,
		Message:  "The photo URL was rejected by the security policy.",
		Category: CategoryValidation,
		Action:   "Use a publicly reachable https image URL.",
	}
}

// NewBackendUnavailableError is returned when the reporting backend cannot
// be reached.
func NewBackendUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBackendUnavailable,
		Message:  fmt.Sprintf("The reporting service is unavailable: %s", reason),
		Category: CategorySystem,
		Action:   "Wait a moment and try again.",
	}
}
