package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
)

const (
	attemptSuccess = "SUCCESS"
	attemptFailed  = "FAILED"
)

// recordAttempt stores a login outcome for audit. Failures are logged, never returned.
func (s *Service) recordAttempt(ctx context.Context, userID *uuid.UUID, req LoginRequest, status, reason string) {
	if s.loginAttempts == nil {
		return
	}
	if err := s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:        userID,
		AttemptAt:     s.nowFn(),
		IPAddress:     req.IPAddress,
		Status:        status,
		FailureReason: reason,
		UserAgent:     req.UserAgent,
	}); err != nil {
		serviceLogger().WarnContext(ctx, "failed to persist login attempt",
			"operation", "record_login_attempt",
			"outcome", "failure",
			"reason", reason,
			"error", err,
		)
	}
}

// burnHash runs one comparison against a throwaway digest so unknown and
// inactive accounts take as long to reject as a wrong password.
func (s *Service) burnHash(password string) {
	if s.dummyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(s.dummyHash, password)
}

// hashToken stores one-way token fingerprints instead of raw secrets.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func randomHex(bytesLen int) (string, error) {
	raw := make([]byte, bytesLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// enforceRateLimit counts a hit for key and fails with ErrRateLimited once
// the key is blocked. An unavailable store lets the request through.
func (s *Service) enforceRateLimit(ctx context.Context, key string, threshold int, window time.Duration) error {
	if s.rateLimits == nil || threshold <= 0 || window <= 0 || strings.TrimSpace(key) == "" {
		return nil
	}

	now := s.nowFn()
	state, err := s.rateLimits.Get(ctx, key)
	if err == nil && state.BlockedUntil != nil && state.BlockedUntil.After(now) {
		return domain.ErrRateLimited
	}

	updated, err := s.rateLimits.Hit(ctx, key, now, threshold, window)
	if err != nil {
		serviceLogger().WarnContext(ctx, "rate-limit state unavailable",
			"operation", "rate_limit",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return nil
	}
	if updated.Count > threshold && updated.BlockedUntil != nil && updated.BlockedUntil.After(now) {
		return domain.ErrRateLimited
	}
	return nil
}

// clearRateLimit drops a rate-limit key after the guarded flow has completed.
func (s *Service) clearRateLimit(ctx context.Context, key string) {
	if s.rateLimits == nil {
		return
	}
	if err := s.rateLimits.Clear(ctx, key); err != nil {
		serviceLogger().WarnContext(ctx, "rate-limit clear failed",
			"operation", "rate_limit",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
	}
}
