package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
	"github.com/viralforge/webauth/internal/ports"
)

const sessionIDBytes = 32

// SessionManager creates, resolves and destroys server-side sessions.
type SessionManager struct {
	store       ports.SessionStore
	ttl         time.Duration
	rememberTTL time.Duration
	nowFn       func() time.Time
}

func NewSessionManager(store ports.SessionStore, ttl, rememberTTL time.Duration, nowFn func() time.Time) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if rememberTTL <= 0 {
		rememberTTL = 30 * 24 * time.Hour
	}
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &SessionManager{store: store, ttl: ttl, rememberTTL: rememberTTL, nowFn: nowFn}
}

// TTL is the session (and cookie) lifetime chosen at creation.
func (m *SessionManager) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return m.rememberTTL
	}
	return m.ttl
}

func (m *SessionManager) Create(ctx context.Context, user domain.User, rememberMe bool) (domain.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return domain.Session{}, err
	}
	now := m.nowFn()
	session := domain.Session{
		SessionID:  id,
		User:       user.Snapshot(),
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.TTL(rememberMe)),
		RememberMe: rememberMe,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Resolve returns the live session or nil. Store failures are logged and read as nil.
func (m *SessionManager) Resolve(ctx context.Context, sessionID string) *domain.Session {
	if sessionID == "" {
		return nil
	}
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		serviceLogger().WarnContext(ctx, "session lookup failed",
			"operation", "resolve_session",
			"outcome", "failure",
			"error", err,
		)
		return nil
	}
	if session == nil || session.Expired(m.nowFn()) {
		return nil
	}
	return session
}

// Destroy removes a session. Unknown ids are not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (m *SessionManager) DestroyAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := m.store.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("destroy user sessions: %w", err)
	}
	return nil
}

// Refresh rewrites the snapshot of a live session, keeping its expiry.
func (m *SessionManager) Refresh(ctx context.Context, sessionID string, user domain.User) error {
	session := m.Resolve(ctx, sessionID)
	if session == nil {
		return nil
	}
	session.User = user.Snapshot()
	if err := m.store.Replace(ctx, *session); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

func newSessionID() (string, error) {
	raw := make([]byte, sessionIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func serviceLogger() *slog.Logger {
	return slog.Default().With(
		"service", "webauth",
		"module", "application",
		"layer", "application",
	)
}
