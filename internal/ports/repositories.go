package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
)

// CreateUserParams captures the inputs of an atomic user insert.
type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
}

// UserStats aggregates account counts for the admin dashboard.
type UserStats struct {
	Total    int64
	Active   int64
	Inactive int64
	Admins   int64
}

// UserRepository is the credential store. It is the only writer of user records.
// Every mutation is keyed by a single user id.
type UserRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateUserParams, outboxEvent OutboxEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	// UpdateLoginState persists failedLoginCount, lockedUntil and lastLoginAt as given.
	UpdateLoginState(ctx context.Context, user domain.User) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string, updatedAt time.Time) (domain.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool, updatedAt time.Time) (domain.User, error)
	Stats(ctx context.Context) (UserStats, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, int64, error)
}

// LoginAttemptRepository stores login outcomes for audit.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// RecoveryRepository owns the password reset token lifecycle.
// Consume returns domain.ErrNotFound for unknown, used or expired tokens.
type RecoveryRepository interface {
	CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, createdAt, expiresAt time.Time) error
	ConsumePasswordResetToken(ctx context.Context, tokenHash string, usedAt time.Time) (uuid.UUID, error)
}
