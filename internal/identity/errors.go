package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// providerError is a structured error response from the identity service.
type providerError struct {
	code   string
	status int
}

// Error implements the error interface.
func (e *providerError) Error() string {
	return fmt.Sprintf("identity service error %s (status %d)", e.code, e.status)
}

// asProviderError unwraps err into a *providerError.
func asProviderError(err error, target **providerError) bool {
	return errors.As(err, target)
}

// parseErrorCode extracts the provider error code from an error response
// body. Returns "" when the body does not carry one.
func parseErrorCode(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Error.Message
}

// mapSignUpError translates a sign-up failure into the model taxonomy.
func mapSignUpError(err error, email string) error {
	var provErr *providerError
	if !asProviderError(err, &provErr) {
		return fmt.Errorf("sign-up request failed: %w", err)
	}
	switch provErr.code {
	case "EMAIL_EXISTS":
		return model.NewDuplicateAccountError(email)
	case "WEAK_PASSWORD", "INVALID_EMAIL":
		return model.NewInvalidCredentialsError()
	default:
		return fmt.Errorf("sign-up rejected: %w", provErr)
	}
}

// mapSignInError translates a password sign-in failure into the model taxonomy.
func mapSignInError(err error) error {
	var provErr *providerError
	if !asProviderError(err, &provErr) {
		return fmt.Errorf("sign-in request failed: %w", err)
	}
	switch provErr.code {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_EMAIL":
		return model.NewInvalidCredentialsError()
	case "USER_DISABLED":
		return model.NewAccountDisabledError()
	default:
		return fmt.Errorf("sign-in rejected: %w", provErr)
	}
}

// tokenExpiry reads the exp claim from an ID token without verifying the
// signature. The identity service is the verifier; the gateway only needs
// the expiry to schedule refreshes. Returns the zero time on parse failure.
func tokenExpiry(idToken string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
