package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/viralforge/webauth/internal/domain"
)

// UpdateProfile edits name and email and refreshes the caller's session snapshot.
func (s *Service) UpdateProfile(ctx context.Context, identity Identity, req UpdateProfileRequest) (UserView, error) {
	if err := RequireRole(identity); err != nil {
		return UserView{}, err
	}
	name, err := domain.NormalizeName(req.Name)
	if err != nil {
		return UserView{}, err
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return UserView{}, err
	}

	if email != identity.User.Email {
		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.UserID != identity.User.ID:
			return UserView{}, domain.ErrDuplicateEmail
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return UserView{}, fmt.Errorf("lookup email: %w", err)
		}
	}

	user, err := s.users.UpdateProfile(ctx, identity.User.ID, name, email, s.nowFn())
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrNotFound) {
			return UserView{}, err
		}
		return UserView{}, fmt.Errorf("update profile: %w", err)
	}
	if identity.SessionID != "" {
		if err := s.sessions.Refresh(ctx, identity.SessionID, user); err != nil {
			serviceLogger().WarnContext(ctx, "session snapshot not refreshed",
				"operation", "update_profile",
				"outcome", "warning",
				"error", err,
			)
		}
	}
	return toUserView(user), nil
}

// ChangePassword verifies the current password, stores the new hash and
// drops every session of the user. When the caller came in through a session
// a fresh one is returned in its place.
func (s *Service) ChangePassword(ctx context.Context, identity Identity, req ChangePasswordRequest) (*domain.Session, error) {
	if err := RequireRole(identity); err != nil {
		return nil, err
	}
	if req.CurrentPassword == "" {
		return nil, &domain.ValidationError{Field: "current_password", Message: "current password is required"}
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return nil, err
	}
	if req.ConfirmRequired || req.ConfirmPassword != "" {
		if err := domain.ValidatePasswordConfirmation(req.NewPassword, req.ConfirmPassword); err != nil {
			return nil, err
		}
	}

	user, err := s.users.GetByID(ctx, identity.User.ID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	ok, err := s.hasher.Verify(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, &domain.ValidationError{Field: "current_password", Message: "current password is incorrect"}
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.UserID, passwordHash, s.nowFn()); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	s.emit(ctx, eventTypePasswordChanged, user.UserID, nil)

	var rememberMe bool
	if current := s.sessions.Resolve(ctx, identity.SessionID); current != nil {
		rememberMe = current.RememberMe
	}
	if err := s.sessions.DestroyAllForUser(ctx, user.UserID); err != nil {
		return nil, err
	}
	if identity.Source != IdentitySourceSession {
		return nil, nil
	}
	session, err := s.sessions.Create(ctx, user, rememberMe)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
