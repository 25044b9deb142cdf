package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
	"github.com/viralforge/webauth/internal/ports"
)

// Register validates input, stores the user together with its registration
// event, then opens a session and issues a token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	name, err := domain.NormalizeName(req.Name)
	if err != nil {
		return AuthResult{}, err
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return AuthResult{}, err
	}
	if req.ConfirmRequired || req.ConfirmPassword != "" {
		if err := domain.ValidatePasswordConfirmation(req.Password, req.ConfirmPassword); err != nil {
			return AuthResult{}, err
		}
	}
	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		if err := s.enforceRateLimit(ctx, "register:ip:"+ip, s.cfg.RegisterRateLimitThreshold, s.cfg.RegisterRateLimitWindow); err != nil {
			return AuthResult{}, err
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	event := s.newEvent(eventTypeUserRegistered, uuid.Nil, map[string]any{
		"email":         email,
		"name":          name,
		"registered_at": now,
	})
	user, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
	}, event)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return AuthResult{}, err
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	serviceLogger().InfoContext(ctx, "user registered",
		"operation", "register",
		"outcome", "success",
		"user_id", user.UserID.String(),
	)
	return s.establish(ctx, user, req.RememberMe)
}

// Login authenticates by email and password.
//
// Order is fixed: lookup, lockout check, password verify, then counter update.
// A locked account is rejected before its password is compared. Unknown
// emails and wrong passwords return the same error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (AuthResult, error) {
	if strings.TrimSpace(req.Email) == "" {
		return AuthResult{}, &domain.ValidationError{Field: "email", Message: "email is required"}
	}
	if req.Password == "" {
		return AuthResult{}, &domain.ValidationError{Field: "password", Message: "password is required"}
	}

	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		s.burnHash(req.Password)
		s.recordAttempt(ctx, nil, req, attemptFailed, "malformed_email")
		return AuthResult{}, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.burnHash(req.Password)
			s.recordAttempt(ctx, nil, req, attemptFailed, "unknown_email")
			return AuthResult{}, domain.ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}
	userID := user.UserID

	if !user.IsActive {
		s.burnHash(req.Password)
		s.recordAttempt(ctx, &userID, req, attemptFailed, "inactive")
		return AuthResult{}, domain.ErrInvalidCredentials
	}

	now := s.nowFn()
	if s.cfg.Lockout.IsLocked(user, now) {
		s.recordAttempt(ctx, &userID, req, attemptFailed, "locked")
		return AuthResult{}, domain.ErrAccountLocked
	}

	ok, err := s.hasher.Verify(user.PasswordHash, req.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		lockedNow := s.cfg.Lockout.RecordFailure(&user, now)
		if err := s.users.UpdateLoginState(ctx, user); err != nil {
			return AuthResult{}, fmt.Errorf("record login failure: %w", err)
		}
		s.recordAttempt(ctx, &userID, req, attemptFailed, "bad_password")
		if lockedNow {
			serviceLogger().WarnContext(ctx, "account locked",
				"operation", "login",
				"outcome", "locked",
				"user_id", userID.String(),
				"failed_login_count", user.FailedLoginCount,
			)
			s.emit(ctx, eventTypeUserLocked, userID, map[string]any{"locked_until": user.LockedUntil})
		}
		return AuthResult{}, domain.ErrInvalidCredentials
	}

	s.cfg.Lockout.RecordSuccess(&user, now)
	if err := s.users.UpdateLoginState(ctx, user); err != nil {
		return AuthResult{}, fmt.Errorf("record login success: %w", err)
	}
	s.recordAttempt(ctx, &userID, req, attemptSuccess, "")

	res, err := s.establish(ctx, user, req.RememberMe)
	if err != nil {
		return AuthResult{}, err
	}
	s.emit(ctx, eventTypeLoginSucceeded, userID, map[string]any{"remember_me": req.RememberMe})
	return res, nil
}

// Logout destroys the session. Missing or already destroyed sessions are fine.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

func (s *Service) establish(ctx context.Context, user domain.User, rememberMe bool) (AuthResult, error) {
	session, err := s.sessions.Create(ctx, user, rememberMe)
	if err != nil {
		return AuthResult{}, err
	}
	token, err := s.tokens.Issue(user.UserID, s.cfg.TokenTTL)
	if err != nil {
		_ = s.sessions.Destroy(ctx, session.SessionID)
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{
		User:           toUserView(user),
		Token:          token,
		TokenExpiresAt: s.nowFn().Add(s.cfg.TokenTTL),
		Session:        session,
	}, nil
}
