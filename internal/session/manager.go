package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/identity"
	"github.com/krishna-ananth-vk/potholed/internal/model"
	"github.com/krishna-ananth-vk/potholed/internal/repository"
)

// ManagerConfig holds manager policy.
type ManagerConfig struct {
	// SessionMaxAge is the session lifetime in seconds.
	SessionMaxAge int
	// LogoutOnFetchFailure is forwarded to each Store.
	LogoutOnFetchFailure bool
}

// Manager owns the registry of live session stores, keyed by session cookie
// ID, and the durable session records that let a browser session survive a
// gateway restart.
type Manager struct {
	provider  identity.Provider
	fetcher   ProfileFetcher
	sessions  repository.SessionRepository
	config    ManagerConfig
	collector Collector

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a Manager. collector may be nil.
func NewManager(
	provider identity.Provider,
	fetcher ProfileFetcher,
	sessions repository.SessionRepository,
	config ManagerConfig,
	collector Collector,
) *Manager {
	return &Manager{
		provider:  provider,
		fetcher:   fetcher,
		sessions:  sessions,
		config:    config,
		collector: collector,
		stores:    make(map[string]*Store),
	}
}

// Begin creates a fresh session store with no signed-in identity and
// returns its ID. The caller sets the session cookie and then drives a
// sign-in through the store.
func (m *Manager) Begin() (string, *Store, error) {
	id, err := generateSessionID()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	store := m.newStore(false)

	m.mu.Lock()
	m.stores[id] = store
	m.mu.Unlock()

	return id, store, nil
}

// Persist writes the durable record for a signed-in session so it can be
// resumed after a restart. Call after a successful sign-in.
func (m *Manager) Persist(ctx context.Context, sessionID string) error {
	store, ok := m.lookupLive(sessionID)
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}

	ident := store.adapter.CurrentIdentity()
	if ident == nil {
		return model.NewNotSignedInError()
	}

	now := time.Now()
	record := &model.Session{
		ID:           sessionID,
		UserID:       ident.UID,
		RefreshToken: store.adapter.RefreshToken(),
		Email:        ident.Email,
		DisplayName:  ident.DisplayName,
		ExpiresAt:    now.Add(time.Duration(m.config.SessionMaxAge) * time.Second),
		CreatedAt:    now,
	}
	if err := m.sessions.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Lookup returns the live store for a session ID, resuming it from the
// durable record when the gateway has restarted since sign-in. Returns nil
// when the session is unknown or expired.
func (m *Manager) Lookup(ctx context.Context, sessionID string) (*Store, error) {
	if store, ok := m.lookupLive(sessionID); ok {
		return store, nil
	}

	record, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	// A resuming store reports Loading until the refresh settles, so the
	// route guard defers instead of redirecting requests that race the
	// refresh round-trip.
	store := m.newStore(true)

	m.mu.Lock()
	// Another request may have resumed the session concurrently.
	if existing, ok := m.stores[sessionID]; ok {
		m.mu.Unlock()
		store.Close()
		return existing, nil
	}
	m.stores[sessionID] = store
	m.mu.Unlock()

	go func() {
		if err := store.adapter.Resume(context.Background(), record.RefreshToken); err != nil {
			slog.Warn("session resume failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			// Leave the store signed out; the guard will redirect to login.
			_ = store.Logout(context.Background())
			return
		}
		// Refresh tokens may rotate on use.
		if token := store.adapter.RefreshToken(); token != "" && token != record.RefreshToken {
			if err := m.sessions.UpdateRefreshToken(context.Background(), sessionID, token); err != nil {
				slog.Warn("failed to update rotated refresh token",
					slog.String("error", err.Error()),
				)
			}
		}
	}()

	slog.Info("session resumed from durable record",
		slog.String("session_id", sessionID),
		slog.String("user_id", record.UserID),
	)
	return store, nil
}

// End signs the session out, closes its store, and removes the durable
// record. Idempotent: ending an unknown session is a no-op.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	store, ok := m.stores[sessionID]
	delete(m.stores, sessionID)
	m.mu.Unlock()

	if ok {
		if err := store.Logout(ctx); err != nil {
			slog.Error("logout failed during session end", slog.String("error", err.Error()))
		}
		store.Close()
	}

	if err := m.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

// Close tears down all live stores.
func (m *Manager) Close() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for id, store := range m.stores {
		stores = append(stores, store)
		delete(m.stores, id)
	}
	m.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
}

func (m *Manager) newStore(resuming bool) *Store {
	adapter := identity.NewAdapter(m.provider)
	return NewStore(adapter, m.fetcher, StoreConfig{
		LogoutOnFetchFailure: m.config.LogoutOnFetchFailure,
		Resuming:             resuming,
	}, m.collector)
}

func (m *Manager) lookupLive(sessionID string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[sessionID]
	return store, ok
}

// generateSessionID returns a cryptographically random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
