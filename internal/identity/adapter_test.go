package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

type mockProvider struct {
	signUp                func(ctx context.Context, email, password string) (*Credential, error)
	signInWithPassword    func(ctx context.Context, email, password string) (*Credential, error)
	signInWithIDP         func(ctx context.Context, providerIDToken string) (*Credential, error)
	refreshCredential     func(ctx context.Context, refreshToken string) (*Credential, error)
	sendPasswordReset     func(ctx context.Context, email string) error
	sendEmailVerification func(ctx context.Context, idToken string) error
	updateDisplayName     func(ctx context.Context, idToken, displayName string) (*model.Identity, error)
	lookup                func(ctx context.Context, idToken string) (*model.Identity, error)
}

var _ Provider = (*mockProvider)(nil)

func (m *mockProvider) SignUp(ctx context.Context, email, password string) (*Credential, error) {
	return m.signUp(ctx, email, password)
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (*Credential, error) {
	return m.signInWithPassword(ctx, email, password)
}

func (m *mockProvider) SignInWithIDP(ctx context.Context, providerIDToken string) (*Credential, error) {
	return m.signInWithIDP(ctx, providerIDToken)
}

func (m *mockProvider) RefreshCredential(ctx context.Context, refreshToken string) (*Credential, error) {
	return m.refreshCredential(ctx, refreshToken)
}

func (m *mockProvider) SendPasswordReset(ctx context.Context, email string) error {
	return m.sendPasswordReset(ctx, email)
}

func (m *mockProvider) SendEmailVerification(ctx context.Context, idToken string) error {
	return m.sendEmailVerification(ctx, idToken)
}

func (m *mockProvider) UpdateDisplayName(ctx context.Context, idToken, displayName string) (*model.Identity, error) {
	return m.updateDisplayName(ctx, idToken, displayName)
}

func (m *mockProvider) Lookup(ctx context.Context, idToken string) (*model.Identity, error) {
	return m.lookup(ctx, idToken)
}

func testCredential(email string) *Credential {
	return &Credential{
		Identity: model.Identity{
			UID:   "uid-" + email,
			Email: email,
		},
		IDToken:      "token-" + email,
		RefreshToken: "refresh-" + email,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func receive(t *testing.T, ch <-chan *model.Identity) *model.Identity {
	t.Helper()
	select {
	case ident := <-ch:
		return ident
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for identity event")
		return nil
	}
}

func TestAdapter_Subscribe_DeliversInitialValue(t *testing.T) {
	adapter := NewAdapter(&mockProvider{})
	defer adapter.Close()

	ch, cancel := adapter.Subscribe()
	defer cancel()

	if got := receive(t, ch); got != nil {
		t.Errorf("initial value = %+v, want nil for a fresh session", got)
	}
}

func TestAdapter_Login_EmitsIdentityInOrder(t *testing.T) {
	provider := &mockProvider{
		signInWithPassword: func(ctx context.Context, email, password string) (*Credential, error) {
			return testCredential(email), nil
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	ch, cancel := adapter.Subscribe()
	defer cancel()
	receive(t, ch) // initial nil

	ident, err := adapter.Login(context.Background(), "a@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if ident.UID != "uid-a@example.com" {
		t.Errorf("Login() UID = %q, want %q", ident.UID, "uid-a@example.com")
	}

	if _, err := adapter.Login(context.Background(), "b@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	first := receive(t, ch)
	second := receive(t, ch)
	if first == nil || first.UID != "uid-a@example.com" {
		t.Errorf("first event = %+v, want identity for a@example.com", first)
	}
	if second == nil || second.UID != "uid-b@example.com" {
		t.Errorf("second event = %+v, want identity for b@example.com", second)
	}
}

func TestAdapter_Login_FailureEmitsNothing(t *testing.T) {
	provider := &mockProvider{
		signInWithPassword: func(ctx context.Context, email, password string) (*Credential, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	ch, cancel := adapter.Subscribe()
	defer cancel()
	receive(t, ch)

	if _, err := adapter.Login(context.Background(), "a@example.com", "wrong"); err == nil {
		t.Fatal("Login() error = nil, want invalid-credentials error")
	}

	select {
	case ident := <-ch:
		t.Errorf("unexpected event %+v after failed login", ident)
	case <-time.After(50 * time.Millisecond):
	}
	if got := adapter.CurrentIdentity(); got != nil {
		t.Errorf("CurrentIdentity() = %+v, want nil", got)
	}
}

func TestAdapter_Logout_EmitsNilAndIsIdempotent(t *testing.T) {
	provider := &mockProvider{
		signInWithPassword: func(ctx context.Context, email, password string) (*Credential, error) {
			return testCredential(email), nil
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	ch, cancel := adapter.Subscribe()
	defer cancel()
	receive(t, ch)

	if _, err := adapter.Login(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	receive(t, ch)

	if err := adapter.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if got := receive(t, ch); got != nil {
		t.Errorf("event after logout = %+v, want nil", got)
	}

	// Second logout with nothing signed in still succeeds.
	if err := adapter.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
	if got := receive(t, ch); got != nil {
		t.Errorf("event after second logout = %+v, want nil", got)
	}
}

func TestAdapter_SignUp_BestEffortSideEffects(t *testing.T) {
	var verificationSent bool
	provider := &mockProvider{
		signUp: func(ctx context.Context, email, password string) (*Credential, error) {
			return testCredential(email), nil
		},
		updateDisplayName: func(ctx context.Context, idToken, displayName string) (*model.Identity, error) {
			return nil, errors.New("name service down")
		},
		sendEmailVerification: func(ctx context.Context, idToken string) error {
			verificationSent = true
			return nil
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	// A failed display-name update must not fail the sign-up itself.
	ident, err := adapter.SignUp(context.Background(), "a@example.com", "secret", "Asha")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if ident == nil || ident.UID != "uid-a@example.com" {
		t.Errorf("SignUp() identity = %+v, want uid-a@example.com", ident)
	}
	if !verificationSent {
		t.Error("verification email was not requested")
	}
	if got := adapter.CurrentIdentity(); got == nil || got.UID != "uid-a@example.com" {
		t.Errorf("CurrentIdentity() = %+v, want signed-up identity", got)
	}
}

func TestAdapter_ResendVerification_RequiresSignIn(t *testing.T) {
	provider := &mockProvider{
		signInWithPassword: func(ctx context.Context, email, password string) (*Credential, error) {
			return testCredential(email), nil
		},
		sendEmailVerification: func(ctx context.Context, idToken string) error {
			if idToken != "token-a@example.com" {
				t.Errorf("idToken = %q, want %q", idToken, "token-a@example.com")
			}
			return nil
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	sent, err := adapter.ResendVerification(context.Background())
	if err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}
	if sent {
		t.Error("ResendVerification() = true while signed out, want false")
	}

	if _, err := adapter.Login(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	sent, err = adapter.ResendVerification(context.Background())
	if err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}
	if !sent {
		t.Error("ResendVerification() = false while signed in, want true")
	}
}

func TestAdapter_IDToken_RefreshesNearExpiry(t *testing.T) {
	refreshed := false
	provider := &mockProvider{
		signInWithPassword: func(ctx context.Context, email, password string) (*Credential, error) {
			cred := testCredential(email)
			cred.ExpiresAt = time.Now().Add(10 * time.Second) // inside the refresh margin
			return cred, nil
		},
		refreshCredential: func(ctx context.Context, refreshToken string) (*Credential, error) {
			if refreshToken != "refresh-a@example.com" {
				t.Errorf("refreshToken = %q, want %q", refreshToken, "refresh-a@example.com")
			}
			refreshed = true
			cred := testCredential("a@example.com")
			cred.IDToken = "token-fresh"
			return cred, nil
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	ch, cancel := adapter.Subscribe()
	defer cancel()
	receive(t, ch)

	if _, err := adapter.Login(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	receive(t, ch)

	token, err := adapter.IDToken(context.Background())
	if err != nil {
		t.Fatalf("IDToken() error = %v", err)
	}
	if token != "token-fresh" {
		t.Errorf("IDToken() = %q, want %q", token, "token-fresh")
	}
	if !refreshed {
		t.Error("credential was not refreshed near expiry")
	}

	// The refresh swaps the credential, so subscribers see a change event.
	if got := receive(t, ch); got == nil || got.UID != "uid-a@example.com" {
		t.Errorf("event after refresh = %+v, want identity for a@example.com", got)
	}
}

func TestAdapter_IDToken_SignedOut(t *testing.T) {
	adapter := NewAdapter(&mockProvider{})
	defer adapter.Close()

	_, err := adapter.IDToken(context.Background())
	if err == nil {
		t.Fatal("IDToken() error = nil, want not-signed-in error")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotSignedIn {
		t.Errorf("IDToken() error = %v, want code %s", err, model.ErrCodeNotSignedIn)
	}
}

func TestAdapter_Resume_RestoresIdentity(t *testing.T) {
	provider := &mockProvider{
		refreshCredential: func(ctx context.Context, refreshToken string) (*Credential, error) {
			if refreshToken != "refresh-a@example.com" {
				return nil, errors.New("unknown refresh token")
			}
			return testCredential("a@example.com"), nil
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	if err := adapter.Resume(context.Background(), "refresh-a@example.com"); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got := adapter.CurrentIdentity(); got == nil || got.UID != "uid-a@example.com" {
		t.Errorf("CurrentIdentity() = %+v, want resumed identity", got)
	}
	if got := adapter.RefreshToken(); got != "refresh-a@example.com" {
		t.Errorf("RefreshToken() = %q, want %q", got, "refresh-a@example.com")
	}
}

func TestAdapter_CancelledSubscriptionReceivesNoEvents(t *testing.T) {
	provider := &mockProvider{
		signInWithPassword: func(ctx context.Context, email, password string) (*Credential, error) {
			return testCredential(email), nil
		},
	}
	adapter := NewAdapter(provider)
	defer adapter.Close()

	ch, cancel := adapter.Subscribe()
	receive(t, ch)
	cancel()

	if _, err := adapter.Login(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// The channel is closed on cancel; any receive yields the zero value.
	if ident, ok := <-ch; ok {
		t.Errorf("received %+v on cancelled subscription", ident)
	}
}
