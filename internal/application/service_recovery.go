package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viralforge/webauth/internal/domain"
)

// RequestPasswordReset stores a one-time reset token for an active account
// and hands the raw token to the outbox for delivery. Unknown emails succeed
// silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email, ipAddress string) error {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return err
	}
	if ip := strings.TrimSpace(ipAddress); ip != "" {
		if err := s.enforceRateLimit(ctx, "reset:ip:"+ip, s.cfg.ResetRateLimitThreshold, s.cfg.ResetRateLimitWindow); err != nil {
			return err
		}
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	rawToken, err := randomHex(32)
	if err != nil {
		return err
	}
	now := s.nowFn()
	expiresAt := now.Add(s.cfg.PasswordResetTTL)
	if err := s.recovery.CreatePasswordResetToken(ctx, user.UserID, hashToken(rawToken), now, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	s.emit(ctx, eventTypePasswordResetRequested, user.UserID, map[string]any{
		"email":      user.Email,
		"name":       user.Name,
		"token":      rawToken,
		"expires_at": expiresAt,
	})
	return nil
}

// ResetPassword consumes a reset token, sets the new password, clears any
// lockout and drops every session of the user. A successful reset also lifts
// the reset-request limit of the caller's address.
func (s *Service) ResetPassword(ctx context.Context, req PasswordResetRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return &domain.ValidationError{Field: "token", Message: "token is required"}
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}
	if req.ConfirmRequired || req.ConfirmPassword != "" {
		if err := domain.ValidatePasswordConfirmation(req.NewPassword, req.ConfirmPassword); err != nil {
			return err
		}
	}

	userID, err := s.recovery.ConsumePasswordResetToken(ctx, hashToken(req.Token), s.nowFn())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	if err := s.users.UpdatePassword(ctx, userID, passwordHash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	user.UpdatedAt = now
	if err := s.users.UpdateLoginState(ctx, user); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	if err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
		return err
	}
	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		s.clearRateLimit(ctx, "reset:ip:"+ip)
	}
	s.emit(ctx, eventTypePasswordChanged, userID, map[string]any{"via": "reset"})
	return nil
}
