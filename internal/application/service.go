package application

import (
	"time"

	"github.com/viralforge/webauth/internal/domain"
	"github.com/viralforge/webauth/internal/ports"
)

// Config holds the policy knobs of the auth service. It is built once at startup.
type Config struct {
	TokenTTL           time.Duration
	SessionTTL         time.Duration
	SessionRememberTTL time.Duration
	Lockout            domain.LockoutPolicy
	PasswordResetTTL   time.Duration

	RegisterRateLimitThreshold int
	RegisterRateLimitWindow    time.Duration
	ResetRateLimitThreshold    int
	ResetRateLimitWindow       time.Duration

	AdminPageSize int
}

type Service struct {
	cfg           Config
	users         ports.UserRepository
	loginAttempts ports.LoginAttemptRepository
	outbox        ports.OutboxRepository
	recovery      ports.RecoveryRepository
	rateLimits    ports.RateLimitStore
	sessions      *SessionManager
	hasher        ports.PasswordHasher
	tokens        ports.TokenIssuer
	nowFn         func() time.Time
	dummyHash     string
}

type Dependencies struct {
	Config        Config
	Users         ports.UserRepository
	LoginAttempts ports.LoginAttemptRepository
	Outbox        ports.OutboxRepository
	Recovery      ports.RecoveryRepository
	RateLimits    ports.RateLimitStore
	Sessions      ports.SessionStore
	Hasher        ports.PasswordHasher
	Tokens        ports.TokenIssuer
	// Clock defaults to the UTC wall clock.
	Clock func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = 10 * time.Minute
	}
	if cfg.AdminPageSize <= 0 {
		cfg.AdminPageSize = 10
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}

	s := &Service{
		cfg:           cfg,
		users:         deps.Users,
		loginAttempts: deps.LoginAttempts,
		outbox:        deps.Outbox,
		recovery:      deps.Recovery,
		rateLimits:    deps.RateLimits,
		sessions:      NewSessionManager(deps.Sessions, cfg.SessionTTL, cfg.SessionRememberTTL, nowFn),
		hasher:        deps.Hasher,
		tokens:        deps.Tokens,
		nowFn:         nowFn,
	}
	// compared against when the email is unknown so both paths pay for one hash
	s.dummyHash, _ = deps.Hasher.Hash("webauth-dummy-password")
	return s
}

// Sessions exposes the session manager to adapters that need cookie lifetimes.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}
