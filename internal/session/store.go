// Package session holds per-browser-session state: the current identity,
// its profile, and the loading flag, with strict ordering between the two.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/krishna-ananth-vk/potholed/internal/identity"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// State is the composite session state read by the route guard and the
// shell. While Loading is true, Identity and Profile must not be used to
// draw conclusions.
type State struct {
	Identity *model.Identity
	Profile  *model.Profile
	Loading  bool
}

// ProfileComplete reports whether the backend knows this user.
func (s State) ProfileComplete() bool {
	return s.Profile != nil && s.Profile.UserExist
}

// ProfileFetcher retrieves the profile for an ID token.
// Implemented by profile.Fetcher.
type ProfileFetcher interface {
	Fetch(ctx context.Context, idToken string) (*model.Profile, error)
}

// Collector receives store lifecycle metrics. A nil Collector disables
// recording.
type Collector interface {
	RecordSupersededFetch()
}

// StoreConfig holds store policy.
type StoreConfig struct {
	// LogoutOnFetchFailure forces a sign-out when the profile cannot be
	// fetched, instead of continuing with an absent profile.
	LogoutOnFetchFailure bool
	// Resuming marks a store created to resume a durable session record.
	// The adapter's initial subscription value is still signed out while
	// the refresh round-trip is in flight; settling on it would conclude
	// a validly resumed session as signed out, so a resuming store keeps
	// loading until the first real identity event.
	Resuming bool
}

// fetchOutcome tags a profile resolution with the identity event that
// issued it, so stale resolutions can be dropped.
type fetchOutcome struct {
	seq     uint64
	profile *model.Profile
	err     error
}

// Store coordinates one session's identity and profile.
//
// It subscribes once to its identity adapter at construction. Identity
// events are processed strictly in arrival order by a single writer
// goroutine; each event bumps a sequence number, sets Loading, and issues at
// most one profile fetch tagged with that sequence. A fetch outcome whose
// tag no longer matches the current sequence is superseded and discarded,
// so a Profile is never paired with an Identity other than the one that
// produced it, regardless of completion order.
type Store struct {
	adapter   *identity.Adapter
	fetcher   ProfileFetcher
	config    StoreConfig
	collector Collector

	mu              sync.RWMutex
	state           State
	bannerDismissed bool

	events      <-chan *model.Identity
	unsubscribe func()
	outcomes    chan fetchOutcome
	done        chan struct{}
	stopped     chan struct{}
}

// NewStore creates a Store, subscribes it to the adapter's change stream,
// and starts its writer goroutine. collector may be nil.
func NewStore(adapter *identity.Adapter, fetcher ProfileFetcher, config StoreConfig, collector Collector) *Store {
	events, unsubscribe := adapter.Subscribe()
	s := &Store{
		adapter:     adapter,
		fetcher:     fetcher,
		config:      config,
		collector:   collector,
		events:      events,
		unsubscribe: unsubscribe,
		outcomes:    make(chan fetchOutcome),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	// The initial subscription value arrives like any other event, so the
	// store starts in Loading until it is processed.
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	go s.run()
	return s
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// BannerDismissed reports whether the incomplete-profile banner was
// dismissed in this session.
func (s *Store) BannerDismissed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bannerDismissed
}

// DismissBanner hides the incomplete-profile banner for this session only.
// The dismissal is not persisted; a new session shows the banner again while
// the profile is incomplete.
func (s *Store) DismissBanner() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bannerDismissed = true
}

// SignUp creates an account and signs it in, returning the new identity.
func (s *Store) SignUp(ctx context.Context, email, password, name string) (*model.Identity, error) {
	return s.adapter.SignUp(ctx, email, password, name)
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	return s.adapter.Login(ctx, email, password)
}

// LoginWithIDP authenticates with a federated provider's ID token.
func (s *Store) LoginWithIDP(ctx context.Context, providerIDToken string) (*model.Identity, error) {
	return s.adapter.LoginWithIDP(ctx, providerIDToken)
}

// Logout signs the identity out. Idempotent.
func (s *Store) Logout(ctx context.Context) error {
	return s.adapter.Logout(ctx)
}

// ResetPassword requests a password-reset email.
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	return s.adapter.ResetPassword(ctx, email)
}

// ResendVerification requests another verification email. Returns false
// when no identity is signed in.
func (s *Store) ResendVerification(ctx context.Context) (bool, error) {
	return s.adapter.ResendVerification(ctx)
}

// IDToken returns a currently valid ID token for backend calls.
func (s *Store) IDToken(ctx context.Context) (string, error) {
	return s.adapter.IDToken(ctx)
}

// RefreshProfile re-issues the profile fetch for the current identity by
// re-emitting it on the change stream. Used after a profile edit is
// persisted.
func (s *Store) RefreshProfile(ctx context.Context) {
	if ident := s.adapter.CurrentIdentity(); ident != nil {
		// Resume with the current refresh token re-emits the identity.
		if err := s.adapter.Resume(ctx, s.adapter.RefreshToken()); err != nil {
			slog.Warn("profile refresh failed", slog.String("error", err.Error()))
		}
	}
}

// Close unsubscribes from the adapter and stops the writer goroutine.
func (s *Store) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.unsubscribe()
	<-s.stopped
}

// run is the single writer. All state mutations happen here, in event
// arrival order.
func (s *Store) run() {
	defer close(s.stopped)

	var seq uint64
	skipInitialNil := s.config.Resuming

	for {
		select {
		case <-s.done:
			return

		case ident, ok := <-s.events:
			if !ok {
				return
			}
			if skipInitialNil {
				skipInitialNil = false
				if ident == nil {
					// Resume still in flight; stay loading. The resume
					// emits the identity on success, or an explicit
					// sign-out on failure.
					continue
				}
			}
			seq++
			s.applyIdentity(ident)
			if ident != nil {
				go s.fetch(seq)
			}

		case outcome := <-s.outcomes:
			if outcome.seq != seq {
				// A newer identity event superseded this fetch.
				if s.collector != nil {
					s.collector.RecordSupersededFetch()
				}
				slog.Info("superseded profile fetch discarded",
					slog.Uint64("fetch_seq", outcome.seq),
					slog.Uint64("current_seq", seq),
				)
				continue
			}
			s.applyOutcome(outcome)
		}
	}
}

// applyIdentity installs a new identity and begins loading. An absent
// identity resolves immediately: profile cleared, loading done, banner
// dismissal reset for the next sign-in.
func (s *Store) applyIdentity(ident *model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Identity = ident
	s.state.Profile = nil
	if ident == nil {
		s.state.Loading = false
		s.bannerDismissed = false
		return
	}
	s.state.Loading = true
}

// applyOutcome installs a non-superseded profile resolution.
func (s *Store) applyOutcome(outcome fetchOutcome) {
	if outcome.err != nil {
		slog.Error("profile fetch failed; continuing with absent profile",
			slog.String("error", outcome.err.Error()),
		)
		s.mu.Lock()
		s.state.Profile = nil
		s.state.Loading = false
		s.mu.Unlock()

		if s.config.LogoutOnFetchFailure {
			// Escalate to a sign-out rather than run authenticated with an
			// unknown profile. Emits a fresh identity event.
			if err := s.adapter.Logout(context.Background()); err != nil {
				slog.Error("forced logout failed", slog.String("error", err.Error()))
			}
		}
		return
	}

	s.mu.Lock()
	s.state.Profile = outcome.profile
	s.state.Loading = false
	s.mu.Unlock()
}

// fetch derives a fresh ID token for this event and resolves the profile,
// reporting the tagged outcome back to the writer.
func (s *Store) fetch(seq uint64) {
	ctx := context.Background()

	token, err := s.adapter.IDToken(ctx)
	if err != nil {
		s.report(fetchOutcome{seq: seq, err: err})
		return
	}

	profile, err := s.fetcher.Fetch(ctx, token)
	s.report(fetchOutcome{seq: seq, profile: profile, err: err})
}

// report delivers an outcome unless the store is shutting down.
func (s *Store) report(outcome fetchOutcome) {
	select {
	case s.outcomes <- outcome:
	case <-s.done:
	}
}
