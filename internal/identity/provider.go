// Package identity wraps the external identity service and exposes a
// normalized set of identity operations plus a change stream per session.
package identity

import (
	"context"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// Credential is the outcome of a successful identity operation: an identity
// snapshot plus the tokens that prove it. ID tokens expire; the refresh
// token is exchanged for a fresh one as needed.
type Credential struct {
	Identity     model.Identity
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider is the client for the external identity service. Implementations
// translate provider error codes into the model error taxonomy.
type Provider interface {
	// SignUp creates an account and returns the signed-in credential.
	// Fails with a duplicate-account error when the email is taken.
	SignUp(ctx context.Context, email, password string) (*Credential, error)

	// SignInWithPassword authenticates with email and password.
	// Fails with an invalid-credentials error on a bad email or password.
	SignInWithPassword(ctx context.Context, email, password string) (*Credential, error)

	// SignInWithIDP authenticates with a federated provider's ID token
	// (Google). Fails with a federated-sign-in error on provider rejection.
	SignInWithIDP(ctx context.Context, providerIDToken string) (*Credential, error)

	// RefreshCredential exchanges a refresh token for a fresh credential.
	RefreshCredential(ctx context.Context, refreshToken string) (*Credential, error)

	// SendPasswordReset requests a password-reset email.
	// Fails with an unknown-email error when the email is not registered.
	SendPasswordReset(ctx context.Context, email string) error

	// SendEmailVerification requests a verification email for the identity
	// behind idToken.
	SendEmailVerification(ctx context.Context, idToken string) error

	// UpdateDisplayName sets the display name on the identity record and
	// returns the updated snapshot.
	UpdateDisplayName(ctx context.Context, idToken, displayName string) (*model.Identity, error)

	// Lookup returns the identity snapshot behind idToken.
	Lookup(ctx context.Context, idToken string) (*model.Identity, error)
}
