// Package memory holds map-backed implementations of the storage ports for
// tests. The application and HTTP tests use them in place of postgres and
// redis; nothing in the running binaries imports it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
	"github.com/viralforge/webauth/internal/ports"
)

type Users struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]domain.User
	outbox ports.OutboxRepository
}

// NewUsers returns an empty user store. Registration events are forwarded to outbox when set.
func NewUsers(outbox ports.OutboxRepository) *Users {
	return &Users{byID: map[uuid.UUID]domain.User{}, outbox: outbox}
}

func (s *Users) findByEmail(email string) (domain.User, bool) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, true
		}
	}
	return domain.User{}, false
}

func (s *Users) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserParams, event ports.OutboxEvent) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findByEmail(params.Email); ok {
		return domain.User{}, domain.ErrDuplicateEmail
	}
	user := domain.User{
		UserID:       uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		IsActive:     true,
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}
	if s.outbox != nil {
		event.PartitionKey = user.UserID.String()
		if err := s.outbox.Enqueue(ctx, event); err != nil {
			return domain.User{}, err
		}
	}
	s.byID[user.UserID] = user
	return user, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.findByEmail(email); ok {
		return u, nil
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *Users) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *Users) UpdateLoginState(_ context.Context, user domain.User) error {
	return s.mutate(user.UserID, func(u *domain.User) error {
		u.FailedLoginCount = user.FailedLoginCount
		u.LockedUntil = user.LockedUntil
		u.LastLoginAt = user.LastLoginAt
		u.UpdatedAt = user.UpdatedAt
		return nil
	})
}

func (s *Users) UpdateProfile(_ context.Context, userID uuid.UUID, name, email string, updatedAt time.Time) (domain.User, error) {
	var out domain.User
	err := s.mutate(userID, func(u *domain.User) error {
		if other, ok := s.findByEmail(email); ok && other.UserID != userID {
			return domain.ErrDuplicateEmail
		}
		u.Name, u.Email, u.UpdatedAt = name, email, updatedAt
		out = *u
		return nil
	})
	return out, err
}

func (s *Users) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	return s.mutate(userID, func(u *domain.User) error {
		u.PasswordHash, u.UpdatedAt = passwordHash, updatedAt
		return nil
	})
}

func (s *Users) SetActive(_ context.Context, userID uuid.UUID, active bool, updatedAt time.Time) (domain.User, error) {
	var out domain.User
	err := s.mutate(userID, func(u *domain.User) error {
		u.IsActive, u.UpdatedAt = active, updatedAt
		out = *u
		return nil
	})
	return out, err
}

// SetRole has no service-level counterpart; roles are assigned out of band.
func (s *Users) SetRole(userID uuid.UUID, role domain.Role) error {
	return s.mutate(userID, func(u *domain.User) error {
		u.Role = role
		return nil
	})
}

func (s *Users) Stats(context.Context) (ports.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats ports.UserStats
	for _, u := range s.byID {
		stats.Total++
		if u.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if u.Role == domain.RoleAdmin {
			stats.Admins++
		}
	}
	return stats, nil
}

func (s *Users) List(_ context.Context, limit, offset int) ([]domain.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return []domain.User{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (s *Users) mutate(userID uuid.UUID, fn func(*domain.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	s.byID[userID] = u
	return nil
}

type LoginAttempts struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func NewLoginAttempts() *LoginAttempts {
	return &LoginAttempts{}
}

func (s *LoginAttempts) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *LoginAttempts) All() []domain.LoginAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LoginAttempt(nil), s.attempts...)
}
