package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level carried by a user and copied into sessions.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// ParseRole maps a stored role string to a known Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleUser, RoleAdmin, RoleModerator:
		return Role(raw), true
	default:
		return "", false
	}
}

// User is the canonical identity record owned by the credential store.
// PasswordHash is only ever produced by the password hasher.
type User struct {
	UserID           uuid.UUID
	Name             string
	Email            string
	PasswordHash     string
	Role             Role
	IsActive         bool
	FailedLoginCount int
	LockedUntil      *time.Time
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Snapshot copies the identity fields that sessions keep.
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		UserID: u.UserID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
	}
}

// UserSnapshot is a point-in-time copy of a user held by a session.
// It does not follow later profile edits.
type UserSnapshot struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// Session is the server-side record referenced by the session cookie.
type Session struct {
	SessionID  string       `json:"session_id"`
	User       UserSnapshot `json:"user"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	RememberMe bool         `json:"remember_me"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type LoginAttempt struct {
	ID            int64
	UserID        *uuid.UUID
	AttemptAt     time.Time
	IPAddress     string
	Status        string
	FailureReason string
	UserAgent     string
}
