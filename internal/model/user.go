// Package model defines the domain models.
package model

import "time"

// Identity is the snapshot of an externally authenticated principal, as
// reported by the identity service. One immutable value per change event.
type Identity struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	CreatedAt     time.Time
}

// UserDetail holds the application-level user record nested inside a
// Profile. Owned by the reporting backend.
type UserDetail struct {
	UID           string    `json:"uid"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	ShowAnonymous bool      `json:"show_anonymous"`
	IsActive      bool      `json:"is_active"`
	IsBanned      bool      `json:"is_banned"`
	ExpPoints     int       `json:"exp_points"`
	Level         int       `json:"level"`
	ReportsCount  int       `json:"reports_count"`
}

// Profile is the extended user record fetched from the reporting backend
// for a verified identity. UserExist is false for a fresh identity that has
// no backend record yet; that is a valid state, not an error.
type Profile struct {
	UID         string     `json:"uid"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	Timestamp   time.Time  `json:"timestamp"`
	Message     string     `json:"message"`
	UserExist   bool       `json:"user_exist"`
	User        UserDetail `json:"user"`
}

// ProfileDraft holds the editable profile fields submitted from the
// profile-edit form. It exists only for the duration of a save request.
type ProfileDraft struct {
	DisplayName   string  `json:"display_name" validate:"required,min=1,max=100"`
	Bio           string  `json:"bio" validate:"max=500"`
	ShowAnonymous bool    `json:"show_anonymous"`
	IsActive      bool    `json:"is_active"`
	PhotoURL      *string `json:"photo_url" validate:"omitempty,url"`
}

// Session is the durable record binding a browser session cookie to an
// identity-service refresh token. It lets an authenticated browser survive
// a gateway restart.
type Session struct {
	ID           string
	UserID       string
	RefreshToken string
	Email        string
	DisplayName  string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
