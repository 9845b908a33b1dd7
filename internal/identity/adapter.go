package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// refreshMargin is how long before ID-token expiry a refresh is attempted.
const refreshMargin = time.Minute

// subscriberBuffer is the per-subscriber event buffer size. The session
// store consumes promptly; a full buffer means the subscriber is stuck.
const subscriberBuffer = 32

// Adapter owns one browser session's relationship with the identity
// service: the current credential, the identity operations, and a stream of
// Identity-or-nil values emitted on every change (sign-in, sign-out, token
// refresh). Subscribers receive the current value once on subscription and
// then one value per change, in order.
type Adapter struct {
	provider Provider

	mu     sync.Mutex
	cred   *Credential
	subs   map[int]chan *model.Identity
	nextID int
	closed bool
}

// NewAdapter creates an Adapter with no signed-in identity.
func NewAdapter(provider Provider) *Adapter {
	return &Adapter{
		provider: provider,
		subs:     make(map[int]chan *model.Identity),
	}
}

// Subscribe registers a listener on the identity change stream. The current
// value (possibly nil) is delivered immediately. The returned func cancels
// the subscription.
func (a *Adapter) Subscribe() (<-chan *model.Identity, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan *model.Identity, subscriberBuffer)
	id := a.nextID
	a.nextID++
	a.subs[id] = ch

	// Initial value, delivered exactly once per subscription.
	ch <- a.snapshotLocked()

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if sub, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SignUp creates an account, sets the display name, and requests a
// verification email. On success the new identity is signed in, emitted,
// and returned so callers do not have to wait for the change stream.
func (a *Adapter) SignUp(ctx context.Context, email, password, name string) (*model.Identity, error) {
	cred, err := a.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if name != "" {
		ident, err := a.provider.UpdateDisplayName(ctx, cred.IDToken, name)
		if err != nil {
			slog.Warn("display name update failed after sign-up",
				slog.String("error", err.Error()),
			)
		} else {
			cred.Identity = *ident
		}
	}

	// Verification email is a post-sign-up side effect; failure to send it
	// does not fail the sign-up.
	if err := a.provider.SendEmailVerification(ctx, cred.IDToken); err != nil {
		slog.Warn("verification email send failed after sign-up",
			slog.String("error", err.Error()),
		)
	}

	a.setCredential(cred)
	ident := cred.Identity
	return &ident, nil
}

// Login authenticates with email and password and emits the new identity.
func (a *Adapter) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	cred, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.setCredential(cred)
	ident := cred.Identity
	return &ident, nil
}

// LoginWithIDP authenticates with a federated provider's ID token and emits
// the new identity.
func (a *Adapter) LoginWithIDP(ctx context.Context, providerIDToken string) (*model.Identity, error) {
	cred, err := a.provider.SignInWithIDP(ctx, providerIDToken)
	if err != nil {
		return nil, err
	}
	a.setCredential(cred)
	ident := cred.Identity
	return &ident, nil
}

// Resume re-establishes a signed-in identity from a stored refresh token and
// emits it. Used after a gateway restart.
func (a *Adapter) Resume(ctx context.Context, refreshToken string) error {
	cred, err := a.provider.RefreshCredential(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}
	a.setCredential(cred)
	return nil
}

// Logout clears the credential and emits an absent identity. Idempotent:
// logging out with no signed-in identity is a no-op that still succeeds.
func (a *Adapter) Logout(ctx context.Context) error {
	a.setCredential(nil)
	return nil
}

// ResetPassword requests a password-reset email.
func (a *Adapter) ResetPassword(ctx context.Context, email string) error {
	return a.provider.SendPasswordReset(ctx, email)
}

// ResendVerification requests another verification email for the current
// identity. Returns false when no identity is signed in.
func (a *Adapter) ResendVerification(ctx context.Context) (bool, error) {
	a.mu.Lock()
	cred := a.cred
	a.mu.Unlock()

	if cred == nil {
		return false, nil
	}
	if err := a.provider.SendEmailVerification(ctx, cred.IDToken); err != nil {
		return false, err
	}
	return true, nil
}

// IDToken returns a currently valid ID token for the signed-in identity,
// refreshing it first when it is about to expire. A refresh emits a new
// identity-change event. Tokens are re-derived per call, never cached by
// callers across events.
func (a *Adapter) IDToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	cred := a.cred
	a.mu.Unlock()

	if cred == nil {
		return "", model.NewNotSignedInError()
	}
	if cred.ExpiresAt.IsZero() || time.Until(cred.ExpiresAt) > refreshMargin {
		return cred.IDToken, nil
	}

	fresh, err := a.provider.RefreshCredential(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	a.setCredential(fresh)
	return fresh.IDToken, nil
}

// CurrentIdentity returns the current identity snapshot, or nil.
func (a *Adapter) CurrentIdentity() *model.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// RefreshToken returns the current refresh token for persistence, or "".
func (a *Adapter) RefreshToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cred == nil {
		return ""
	}
	return a.cred.RefreshToken
}

// Close cancels all subscriptions. Further operations are rejected.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
}

// setCredential swaps the credential and emits the resulting identity value
// to all subscribers, in order.
func (a *Adapter) setCredential(cred *Credential) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	a.cred = cred
	snapshot := a.snapshotLocked()
	for _, ch := range a.subs {
		select {
		case ch <- snapshot:
		default:
			slog.Warn("identity event dropped: subscriber buffer full")
		}
	}
}

// snapshotLocked returns a copy of the current identity. Callers must hold mu.
func (a *Adapter) snapshotLocked() *model.Identity {
	if a.cred == nil {
		return nil
	}
	ident := a.cred.Identity
	return &ident
}
