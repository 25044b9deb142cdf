package ports

import (
	"time"

	"github.com/google/uuid"
)

// PasswordHasher hashes and verifies credentials.
// Verify returns (false, nil) on mismatch and a non-nil error only when the
// comparison itself could not run.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) (bool, error)
}

type TokenClaims struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies bearer tokens.
// Verify fails with domain.ErrInvalidToken for every kind of rejection.
type TokenIssuer interface {
	Issue(userID uuid.UUID, ttl time.Duration) (string, error)
	Verify(token string) (TokenClaims, error)
}
