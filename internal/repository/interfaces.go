// Package repository defines the persistence interfaces.
package repository

import (
	"context"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// SessionRepository persists the binding between a session cookie and an
// identity-service refresh token.
type SessionRepository interface {
	// Create stores a session record.
	Create(ctx context.Context, session *model.Session) error
	// FindByID returns the session with the given ID, or nil when it does
	// not exist or has expired.
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// UpdateRefreshToken replaces the stored refresh token after a rotation.
	UpdateRefreshToken(ctx context.Context, id, refreshToken string) error
	// DeleteByID removes a session record.
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired removes all expired session records and returns the
	// number removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
