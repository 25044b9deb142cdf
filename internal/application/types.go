package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
)

// RegisterRequest carries an optional confirmation. ConfirmRequired makes an
// empty confirmation a mismatch; browser forms set it.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	RememberMe      bool   `json:"remember_me"`
	IPAddress       string `json:"-"`
	ConfirmRequired bool   `json:"-"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// UserView is the client-facing projection of a user. It has no password field.
type UserView struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	IsActive    bool        `json:"is_active"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func toUserView(u domain.User) UserView {
	return UserView{
		ID:          u.UserID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// AuthResult is returned by register and login. The session is consumed by
// the cookie layer and never serialized.
type AuthResult struct {
	User           UserView       `json:"user"`
	Token          string         `json:"token"`
	TokenExpiresAt time.Time      `json:"token_expires_at"`
	Session        domain.Session `json:"-"`
}

// IdentityRequest carries the two credentials a request can present.
type IdentityRequest struct {
	SessionID   string
	BearerToken string
}

const (
	IdentitySourceSession = "session"
	IdentitySourceToken   = "token"
)

// Identity is the resolved caller of a request. The zero value is anonymous.
type Identity struct {
	Authenticated bool     `json:"authenticated"`
	User          UserView `json:"user"`
	Source        string   `json:"source"`
	SessionID     string   `json:"-"`
}

func Anonymous() Identity {
	return Identity{}
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
	ConfirmRequired bool   `json:"-"`
}

type PasswordResetRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
	IPAddress       string `json:"-"`
	ConfirmRequired bool   `json:"-"`
}

type AdminDashboard struct {
	TotalUsers    int64      `json:"total_users"`
	ActiveUsers   int64      `json:"active_users"`
	InactiveUsers int64      `json:"inactive_users"`
	AdminUsers    int64      `json:"admin_users"`
	RecentUsers   []UserView `json:"recent_users"`
}

type UserPage struct {
	Users      []UserView `json:"users"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
	HasNext    bool       `json:"has_next"`
	HasPrev    bool       `json:"has_prev"`
}
