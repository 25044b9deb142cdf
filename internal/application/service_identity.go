package application

import (
	"context"
	"errors"
	"slices"

	"github.com/viralforge/webauth/internal/domain"
)

// ResolveIdentity checks the session cookie first and the bearer token second.
// In both cases the user record is re-read; a missing or inactive user yields
// Anonymous, and the session that pointed at it is destroyed.
func (s *Service) ResolveIdentity(ctx context.Context, req IdentityRequest) Identity {
	if session := s.sessions.Resolve(ctx, req.SessionID); session != nil {
		user, err := s.users.GetByID(ctx, session.User.UserID)
		switch {
		case err == nil && user.IsActive:
			return Identity{
				Authenticated: true,
				User:          toUserView(user),
				Source:        IdentitySourceSession,
				SessionID:     session.SessionID,
			}
		case err == nil || errors.Is(err, domain.ErrNotFound):
			if destroyErr := s.sessions.Destroy(ctx, session.SessionID); destroyErr != nil {
				serviceLogger().WarnContext(ctx, "stale session not destroyed",
					"operation", "resolve_identity",
					"outcome", "failure",
					"error", destroyErr,
				)
			}
		default:
			serviceLogger().WarnContext(ctx, "session user lookup failed",
				"operation", "resolve_identity",
				"outcome", "failure",
				"error", err,
			)
		}
	}

	if req.BearerToken == "" {
		return Anonymous()
	}
	claims, err := s.tokens.Verify(req.BearerToken)
	if err != nil {
		return Anonymous()
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return Anonymous()
	}
	return Identity{
		Authenticated: true,
		User:          toUserView(user),
		Source:        IdentitySourceToken,
	}
}

// RequireRole fails with ErrUnauthenticated for anonymous callers and
// ErrForbidden when the caller's role is not in allowed.
func (s *Service) RequireRole(identity Identity, allowed ...domain.Role) error {
	return RequireRole(identity, allowed...)
}

func RequireRole(identity Identity, allowed ...domain.Role) error {
	if !identity.Authenticated {
		return domain.ErrUnauthenticated
	}
	if len(allowed) == 0 || slices.Contains(allowed, identity.User.Role) {
		return nil
	}
	return domain.ErrForbidden
}
