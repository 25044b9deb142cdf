package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/viralforge/webauth/internal/application"
	"github.com/viralforge/webauth/internal/domain"
)

var errMalformedHash = errors.New("malformed hash")

func mustRegister(t *testing.T, f *fixture, name, email, password string) application.AuthResult {
	t.Helper()
	res, err := f.service.Register(context.Background(), application.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("register %s failed: %v", email, err)
	}
	return res
}

func TestRegisterThenLoginNeverExposesHash(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	reg := mustRegister(t, f, "Ali", "Ali@X.com", "secret1")
	if reg.User.Email != "ali@x.com" {
		t.Fatalf("expected lowercased email, got %s", reg.User.Email)
	}
	if reg.User.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %s", reg.User.Role)
	}
	if reg.Token == "" || reg.Session.SessionID == "" {
		t.Fatalf("register should issue token and session")
	}
	if stored := f.storedUser(reg.User.ID); stored.PasswordHash != "hashed:secret1" {
		t.Fatalf("password should be stored hashed, got %q", stored.PasswordHash)
	}

	login, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	for _, res := range []application.AuthResult{reg, login} {
		raw, err := json.Marshal(res)
		if err != nil {
			t.Fatalf("marshal result: %v", err)
		}
		if strings.Contains(string(raw), "hashed:") || strings.Contains(strings.ToLower(string(raw)), "password") {
			t.Fatalf("serialized result leaks password data: %s", raw)
		}
		if strings.Contains(string(raw), res.Session.SessionID) {
			t.Fatalf("serialized result leaks session id")
		}
	}
	if f.lastPayload("user.login.succeeded") == nil {
		t.Fatalf("expected login event")
	}
}

func TestRegisterDuplicateEmailAnyCase(t *testing.T) {
	t.Parallel()

	f := newFixture()
	mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	_, err := f.service.Register(context.Background(), application.RegisterRequest{
		Name:     "Other",
		Email:    "  ALI@x.COM ",
		Password: "secret2",
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		req   application.RegisterRequest
		field string
	}{
		{name: "short name", req: application.RegisterRequest{Name: "A", Email: "a@x.com", Password: "secret1"}, field: "name"},
		{name: "long name", req: application.RegisterRequest{Name: strings.Repeat("n", 51), Email: "a@x.com", Password: "secret1"}, field: "name"},
		{name: "bad email", req: application.RegisterRequest{Name: "Ali", Email: "nope", Password: "secret1"}, field: "email"},
		{name: "short password", req: application.RegisterRequest{Name: "Ali", Email: "a@x.com", Password: "123"}, field: "password"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			_, err := f.service.Register(context.Background(), tc.req)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, vErr.Field)
			}
		})
	}
}

func TestRegisterRateLimitedPerIP(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.RegisterRateLimitThreshold = 2
	f := newFixtureWithConfig(cfg)
	ctx := context.Background()

	for i, email := range []string{"a@x.com", "b@x.com"} {
		if _, err := f.service.Register(ctx, application.RegisterRequest{
			Name: "User", Email: email, Password: "secret1", IPAddress: "10.0.0.1",
		}); err != nil {
			t.Fatalf("register %d failed: %v", i, err)
		}
	}
	_, err := f.service.Register(ctx, application.RegisterRequest{
		Name: "User", Email: "c@x.com", Password: "secret1", IPAddress: "10.0.0.1",
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := f.service.Register(ctx, application.RegisterRequest{
		Name: "User", Email: "c@x.com", Password: "secret1", IPAddress: "10.0.0.2",
	}); err != nil {
		t.Fatalf("other ip should not be limited: %v", err)
	}
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	reg := mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	for i := 1; i <= 5; i++ {
		_, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "wrong"})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	stored := f.storedUser(reg.User.ID)
	if stored.FailedLoginCount != 5 || stored.LockedUntil == nil {
		t.Fatalf("expected locked account, got count=%d lockedUntil=%v", stored.FailedLoginCount, stored.LockedUntil)
	}

	_, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"})
	if !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked with correct password, got %v", err)
	}
	if f.lastPayload("user.locked") == nil {
		t.Fatalf("expected user.locked event")
	}
}

func TestLoginAfterLockExpiryResetsCounter(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	reg := mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	for i := 0; i < 5; i++ {
		_, _ = f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "wrong"})
	}
	f.clock.Advance(30*time.Minute + time.Second)

	res, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login after expiry failed: %v", err)
	}
	stored := f.storedUser(reg.User.ID)
	if stored.FailedLoginCount != 0 || stored.LockedUntil != nil {
		t.Fatalf("expected reset counter, got count=%d lockedUntil=%v", stored.FailedLoginCount, stored.LockedUntil)
	}
	if res.User.LastLoginAt == nil || !res.User.LastLoginAt.Equal(f.clock.Now()) {
		t.Fatalf("expected lastLoginAt stamped")
	}
}

func TestLoginFailureAfterExpiryRelocks(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	for i := 0; i < 5; i++ {
		_, _ = f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "wrong"})
	}
	f.clock.Advance(31 * time.Minute)

	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "wrong"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"}); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("stale counter should relock on first failure after expiry, got %v", err)
	}
}

func TestLoginUnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	_, unknownErr := f.service.Login(ctx, application.LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	_, wrongErr := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "wrong"})

	if !errors.Is(unknownErr, domain.ErrInvalidCredentials) || !errors.Is(wrongErr, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("messages differ: %q vs %q", unknownErr.Error(), wrongErr.Error())
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	reg := mustRegister(t, f, "Ali", "ali@x.com", "secret1")
	if _, err := f.users.SetActive(ctx, reg.User.ID, false, f.clock.Now()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRememberMeExtendsSession(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	short, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	long, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1", RememberMe: true})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	now := f.clock.Now()
	if got := short.Session.ExpiresAt.Sub(now); got != 24*time.Hour {
		t.Fatalf("expected 24h session, got %s", got)
	}
	if got := long.Session.ExpiresAt.Sub(now); got != 30*24*time.Hour {
		t.Fatalf("expected 30d session, got %s", got)
	}
	if !long.Session.RememberMe {
		t.Fatalf("expected rememberMe recorded on session")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	reg := mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	if err := f.service.Logout(ctx, reg.Session.SessionID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := f.service.Logout(ctx, reg.Session.SessionID); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if err := f.service.Logout(ctx, ""); err != nil {
		t.Fatalf("empty logout failed: %v", err)
	}
	if s := f.service.Sessions().Resolve(ctx, reg.Session.SessionID); s != nil {
		t.Fatalf("destroyed session should not resolve")
	}
}

func TestScenarioRegisterLoginResolveThenLockout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	mustRegister(t, f, "Ali", "ali@x.com", "secret1")
	login, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	identity := f.service.ResolveIdentity(ctx, application.IdentityRequest{SessionID: login.Session.SessionID})
	if !identity.Authenticated || identity.User.Role != domain.RoleUser {
		t.Fatalf("expected authenticated user identity, got %+v", identity)
	}

	for i := 0; i < 5; i++ {
		_, _ = f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "wrong"})
	}
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1"}); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestRegisterPasswordConfirmation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		confirm  string
		required bool
		wantErr  bool
	}{
		{name: "omitted by api client", confirm: "", required: false},
		{name: "matching", confirm: "secret1", required: true},
		{name: "mismatch", confirm: "secret2", wantErr: true},
		{name: "missing on form", confirm: "", required: true, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture()
			_, err := f.service.Register(context.Background(), application.RegisterRequest{
				Name:            "Ali",
				Email:           "ali@x.com",
				Password:        "secret1",
				ConfirmPassword: tc.confirm,
				ConfirmRequired: tc.required,
			})
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("register failed: %v", err)
				}
				return
			}
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != "confirm_password" {
				t.Fatalf("expected confirm_password validation error, got %v", err)
			}
			if _, err := f.users.GetByEmail(context.Background(), "ali@x.com"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("mismatched confirmation must not create the user, got %v", err)
			}
		})
	}
}

func TestLoginRecordsAuditAttempts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	mustRegister(t, f, "Ali", "ali@x.com", "secret1")

	_, _ = f.service.Login(ctx, application.LoginRequest{Email: "nobody@x.com", Password: "secret1", IPAddress: "10.0.0.1"})
	_, _ = f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "wrong", IPAddress: "10.0.0.1"})
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "ali@x.com", Password: "secret1", IPAddress: "10.0.0.1", UserAgent: "test"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	attempts := f.attempts.All()
	if len(attempts) != 3 {
		t.Fatalf("expected 3 audit rows, got %d", len(attempts))
	}
	wantReasons := []string{"unknown_email", "bad_password", ""}
	for i, a := range attempts {
		if a.FailureReason != wantReasons[i] {
			t.Fatalf("attempt %d: expected reason %q, got %q", i, wantReasons[i], a.FailureReason)
		}
	}
	if attempts[0].UserID != nil || attempts[1].UserID == nil {
		t.Fatalf("unknown emails must not carry a user id")
	}
	if attempts[2].Status != "SUCCESS" || attempts[2].UserAgent != "test" {
		t.Fatalf("unexpected success row %+v", attempts[2])
	}
}
