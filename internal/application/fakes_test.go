package application_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/adapters/memory"
	"github.com/viralforge/webauth/internal/application"
	"github.com/viralforge/webauth/internal/domain"
	"github.com/viralforge/webauth/internal/ports"
)

// fixture runs the service over the memory stores. Only the clock, hasher
// and token issuer are faked so tests can move time and skip bcrypt.
type fixture struct {
	service    *application.Service
	clock      *fakeClock
	users      *memory.Users
	sessions   *memory.Sessions
	outbox     *memory.Outbox
	attempts   *memory.LoginAttempts
	recovery   *memory.Recovery
	tokens     *fakeTokens
	rateLimits *memory.RateLimits
}

func defaultTestConfig() application.Config {
	return application.Config{
		TokenTTL:                   7 * 24 * time.Hour,
		SessionTTL:                 24 * time.Hour,
		SessionRememberTTL:         30 * 24 * time.Hour,
		Lockout:                    domain.LockoutPolicy{Threshold: 5, Duration: 30 * time.Minute},
		PasswordResetTTL:           10 * time.Minute,
		RegisterRateLimitThreshold: 50,
		RegisterRateLimitWindow:    time.Minute,
		ResetRateLimitThreshold:    5,
		ResetRateLimitWindow:       time.Minute,
		AdminPageSize:              10,
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	outbox := memory.NewOutbox()
	f := &fixture{
		clock:      clock,
		users:      memory.NewUsers(outbox),
		sessions:   memory.NewSessions(clock.Now),
		outbox:     outbox,
		attempts:   memory.NewLoginAttempts(),
		recovery:   memory.NewRecovery(),
		tokens:     &fakeTokens{issued: map[string]ports.TokenClaims{}, clock: clock},
		rateLimits: memory.NewRateLimits(),
	}
	f.service = application.NewService(application.Dependencies{
		Config:        cfg,
		Users:         f.users,
		LoginAttempts: f.attempts,
		Outbox:        f.outbox,
		Recovery:      f.recovery,
		RateLimits:    f.rateLimits,
		Sessions:      f.sessions,
		Hasher:        &fakeHasher{},
		Tokens:        f.tokens,
		Clock:         clock.Now,
	})
	return f
}

// storedUser reads the persisted record, including fields the views hide.
func (f *fixture) storedUser(userID uuid.UUID) domain.User {
	u, _ := f.users.GetByID(context.Background(), userID)
	return u
}

func (f *fixture) setRole(userID uuid.UUID, role domain.Role) {
	_ = f.users.SetRole(userID, role)
}

// lastPayload decodes the most recent outbox event of eventType, or nil.
func (f *fixture) lastPayload(eventType string) map[string]any {
	records := f.outbox.Records()
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].EventType == eventType {
			var out map[string]any
			_ = json.Unmarshal(records[i].Payload, &out)
			return out
		}
	}
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (f *fakeHasher) Verify(hash, password string) (bool, error) {
	if !strings.HasPrefix(hash, "hashed:") {
		return false, errMalformedHash
	}
	return hash == "hashed:"+password, nil
}

type fakeTokens struct {
	mu     sync.Mutex
	issued map[string]ports.TokenClaims
	clock  *fakeClock
}

func (f *fakeTokens) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clock.Now()
	token := "tok-" + uuid.NewString()
	f.issued[token] = ports.TokenClaims{UserID: userID, IssuedAt: now, ExpiresAt: now.Add(ttl)}
	return token, nil
}

func (f *fakeTokens) Verify(token string) (ports.TokenClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.issued[token]
	if !ok || !f.clock.Now().Before(claims.ExpiresAt) {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}
	return claims, nil
}
