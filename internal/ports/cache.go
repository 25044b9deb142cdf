package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
)

// SessionStore is the durable backing for server-side sessions.
// Get returns (nil, nil) for unknown or expired ids.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	// Replace overwrites a live session without changing its expiry.
	Replace(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

// RateLimitState is the current counter envelope for a rate-limit key.
type RateLimitState struct {
	Count        int
	BlockedUntil *time.Time
}

// RateLimitStore counts hits per key inside a window.
type RateLimitStore interface {
	Get(ctx context.Context, key string) (RateLimitState, error)
	Hit(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (RateLimitState, error)
	Clear(ctx context.Context, key string) error
}
