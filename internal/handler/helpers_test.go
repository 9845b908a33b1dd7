package handler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/identity"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/repository"
	"github.com/krishna-ananth-vk/potholed/internal/session"
)

// testProvider is a function-field identity provider with working defaults.
type testProvider struct {
	signInFn      func(ctx context.Context, email, password string) (*identity.Credential, error)
	signInIDPFn   func(ctx context.Context, providerIDToken string) (*identity.Credential, error)
	passwordReset func(ctx context.Context, email string) error
}

var _ identity.Provider = (*testProvider)(nil)

func credentialFor(email string) *identity.Credential {
	return &identity.Credential{
		Identity: model.Identity{
			UID:   "uid-" + email,
			Email: email,
		},
		IDToken:      "token-" + email,
		RefreshToken: "refresh-" + email,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func (p *testProvider) SignUp(ctx context.Context, email, password string) (*identity.Credential, error) {
	return credentialFor(email), nil
}

func (p *testProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Credential, error) {
	if p.signInFn != nil {
		return p.signInFn(ctx, email, password)
	}
	return credentialFor(email), nil
}

func (p *testProvider) SignInWithIDP(ctx context.Context, providerIDToken string) (*identity.Credential, error) {
	if p.signInIDPFn != nil {
		return p.signInIDPFn(ctx, providerIDToken)
	}
	return credentialFor("google-user@example.com"), nil
}

func (p *testProvider) RefreshCredential(ctx context.Context, refreshToken string) (*identity.Credential, error) {
	return credentialFor("refreshed@example.com"), nil
}

func (p *testProvider) SendPasswordReset(ctx context.Context, email string) error {
	if p.passwordReset != nil {
		return p.passwordReset(ctx, email)
	}
	return nil
}

func (p *testProvider) SendEmailVerification(ctx context.Context, idToken string) error {
	return nil
}

func (p *testProvider) UpdateDisplayName(ctx context.Context, idToken, displayName string) (*model.Identity, error) {
	ident := credentialFor(strings.TrimPrefix(idToken, "token-")).Identity
	ident.DisplayName = displayName
	return &ident, nil
}

func (p *testProvider) Lookup(ctx context.Context, idToken string) (*model.Identity, error) {
	ident := credentialFor("user@example.com").Identity
	return &ident, nil
}

// testFetcher resolves every profile fetch through fetchFn, defaulting to an
// existing profile.
type testFetcher struct {
	fetchFn func(ctx context.Context, idToken string) (*model.Profile, error)
}

var _ session.ProfileFetcher = (*testFetcher)(nil)

func (f *testFetcher) Fetch(ctx context.Context, idToken string) (*model.Profile, error) {
	if f.fetchFn != nil {
		return f.fetchFn(ctx, idToken)
	}
	return &model.Profile{
		UserExist: true,
		User:      model.UserDetail{UID: "uid-for-" + idToken},
	}, nil
}

// testSessionRepo is an in-memory SessionRepository.
type testSessionRepo struct {
	mu      sync.Mutex
	records map[string]*model.Session
}

var _ repository.SessionRepository = (*testSessionRepo)(nil)

func newTestSessionRepo() *testSessionRepo {
	return &testSessionRepo{records: make(map[string]*model.Session)}
}

func (r *testSessionRepo) Create(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.records[s.ID] = &copied
	return nil
}

func (r *testSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *testSessionRepo) UpdateRefreshToken(ctx context.Context, id, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[id]; ok {
		record.RefreshToken = refreshToken
	}
	return nil
}

func (r *testSessionRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *testSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// testAuthCollector counts sign-in and sign-out events.
type testAuthCollector struct {
	mu       sync.Mutex
	signIns  map[string]int
	signOuts int
}

var _ AuthCollector = (*testAuthCollector)(nil)

func newTestAuthCollector() *testAuthCollector {
	return &testAuthCollector{signIns: make(map[string]int)}
}

func (c *testAuthCollector) RecordSignIn(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signIns[method]++
}

func (c *testAuthCollector) RecordSignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signOuts++
}

func (c *testAuthCollector) signInCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signIns[method]
}

func (c *testAuthCollector) signOutCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signOuts
}

func newHandlerTestManager(t *testing.T, provider identity.Provider, fetcher session.ProfileFetcher) *session.Manager {
	t.Helper()
	if provider == nil {
		provider = &testProvider{}
	}
	if fetcher == nil {
		fetcher = &testFetcher{}
	}
	m := session.NewManager(provider, fetcher, newTestSessionRepo(), session.ManagerConfig{SessionMaxAge: 3600}, nil)
	t.Cleanup(m.Close)
	return m
}

// settleStore waits until a store's profile load has concluded.
func settleStore(t *testing.T, store *session.Store, cond func(session.State) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(store.Snapshot()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("store did not settle; state = %+v", store.Snapshot())
}
