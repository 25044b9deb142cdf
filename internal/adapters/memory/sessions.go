package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
	"github.com/viralforge/webauth/internal/ports"
)

type Sessions struct {
	mu    sync.Mutex
	byID  map[string]domain.Session
	nowFn func() time.Time
}

func NewSessions(nowFn func() time.Time) *Sessions {
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Sessions{byID: map[string]domain.Session{}, nowFn: nowFn}
}

func (s *Sessions) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[session.SessionID] = session
	return nil
}

func (s *Sessions) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[sessionID]
	if !ok {
		return nil, nil
	}
	if session.Expired(s.nowFn()) {
		delete(s.byID, sessionID)
		return nil, nil
	}
	return &session, nil
}

func (s *Sessions) Replace(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.byID[session.SessionID]; ok {
		session.ExpiresAt = current.ExpiresAt
		s.byID[session.SessionID] = session
	}
	return nil
}

func (s *Sessions) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, sessionID)
	return nil
}

func (s *Sessions) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.byID {
		if session.User.UserID == userID {
			delete(s.byID, id)
		}
	}
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type resetToken struct {
	userID    uuid.UUID
	expiresAt time.Time
	used      bool
}

type Recovery struct {
	mu     sync.Mutex
	tokens map[string]resetToken
}

func NewRecovery() *Recovery {
	return &Recovery{tokens: map[string]resetToken{}}
}

// CreatePasswordResetToken drops any unused token of the user before storing the new one.
func (s *Recovery) CreatePasswordResetToken(_ context.Context, userID uuid.UUID, tokenHash string, _, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, tok := range s.tokens {
		if tok.userID == userID && !tok.used {
			delete(s.tokens, hash)
		}
	}
	s.tokens[tokenHash] = resetToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Recovery) ConsumePasswordResetToken(_ context.Context, tokenHash string, usedAt time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[tokenHash]
	if !ok || tok.used || !tok.expiresAt.After(usedAt) {
		return uuid.Nil, domain.ErrNotFound
	}
	tok.used = true
	s.tokens[tokenHash] = tok
	return tok.userID, nil
}

type RateLimits struct {
	mu    sync.Mutex
	state map[string]rateLimitEntry
}

type rateLimitEntry struct {
	ports.RateLimitState
	windowEnd time.Time
}

func NewRateLimits() *RateLimits {
	return &RateLimits{state: map[string]rateLimitEntry{}}
}

func (s *RateLimits) Get(_ context.Context, key string) (ports.RateLimitState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key].RateLimitState, nil
}

// Hit counts inside a fixed window opened by the first hit. Reaching threshold
// blocks the key for one window.
func (s *RateLimits) Hit(_ context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.RateLimitState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.state[key]
	if !entry.windowEnd.After(now) && (entry.BlockedUntil == nil || !entry.BlockedUntil.After(now)) {
		entry = rateLimitEntry{windowEnd: now.Add(window)}
	}
	entry.Count++
	if entry.Count >= threshold && entry.BlockedUntil == nil {
		until := now.Add(window)
		entry.BlockedUntil = &until
	}
	s.state[key] = entry
	return entry.RateLimitState, nil
}

func (s *RateLimits) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
	return nil
}
