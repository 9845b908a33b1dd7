package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// PostgresSessionRepo is the PostgreSQL-backed session repository.
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo creates a PostgresSessionRepo.
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create stores a session record.
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token, email, display_name, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.UserID, session.RefreshToken,
		session.Email, session.DisplayName, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID returns the session with the given ID. Expired sessions return nil.
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, refresh_token, email, display_name, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(
		&session.ID, &session.UserID, &session.RefreshToken,
		&session.Email, &session.DisplayName, &session.ExpiresAt, &session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// UpdateRefreshToken replaces the stored refresh token after a rotation.
func (r *PostgresSessionRepo) UpdateRefreshToken(ctx context.Context, id, refreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET refresh_token = $2 WHERE id = $1`,
		id, refreshToken,
	)
	if err != nil {
		return fmt.Errorf("failed to update session refresh token: %w", err)
	}
	return nil
}

// DeleteByID removes a session record.
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired session records.
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
