package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testSecret = strings.Repeat("x", 32)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_URL", "postgres://localhost/webauth")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.TokenTTL != 7*24*time.Hour || cfg.SessionTTL != 24*time.Hour || cfg.SessionRememberTTL != 30*24*time.Hour {
		t.Fatalf("unexpected ttl defaults %+v", cfg)
	}
	if cfg.LockoutThreshold != 5 || cfg.LockoutDuration != 30*time.Minute {
		t.Fatalf("unexpected lockout defaults %d %s", cfg.LockoutThreshold, cfg.LockoutDuration)
	}
	if cfg.Environment != EnvProduction || cfg.IsDevelopment() || !cfg.SessionCookieSecure {
		t.Fatalf("expected secure production defaults, got %q secure=%v", cfg.Environment, cfg.SessionCookieSecure)
	}
}

func TestLoadConfigDevelopmentOptIn(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "Development")
	t.Setenv("SESSION_COOKIE_SECURE", "false")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.IsDevelopment() || cfg.SessionCookieSecure {
		t.Fatalf("expected insecure development config, got %q secure=%v", cfg.Environment, cfg.SessionCookieSecure)
	}
}

func TestLoadConfigShippedFileIsProduction(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join("..", "..", "..", "configs", "default.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.IsDevelopment() || !cfg.SessionCookieSecure {
		t.Fatalf("shipped config must not run in development mode")
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	cases := []struct {
		name  string
		unset string
		value string
	}{
		{name: "missing secret", unset: "JWT_SECRET"},
		{name: "short secret", unset: "JWT_SECRET", value: "short"},
		{name: "missing db", unset: "DB_URL"},
		{name: "missing redis", unset: "REDIS_URL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, tc.value)
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
service:
  http_port: 8181
auth:
  token_ttl: 2d
  lockout_threshold: 3
session:
  ttl: 12h
  cookie_name: sid
dependencies:
  kafka_brokers: ["k1:9092"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LOCKOUT_DURATION", "45m")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != 8181 || cfg.TokenTTL != 48*time.Hour || cfg.LockoutThreshold != 3 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.SessionTTL != 12*time.Hour || cfg.SessionCookieName != "sid" {
		t.Fatalf("session values not applied: %+v", cfg)
	}
	if cfg.LockoutDuration != 45*time.Minute {
		t.Fatalf("env should override, got %s", cfg.LockoutDuration)
	}
	if !cfg.SessionCookieSecure || cfg.IsDevelopment() {
		t.Fatalf("production should force secure cookies")
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_TTL", "soon")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"7d":  7 * 24 * time.Hour,
		"30m": 30 * time.Minute,
		"24h": 24 * time.Hour,
	}
	for raw, want := range cases {
		got, err := parseDuration(raw)
		if err != nil || got != want {
			t.Fatalf("%s: expected %s, got %s (%v)", raw, want, got, err)
		}
	}
	if _, err := parseDuration("xd"); err == nil {
		t.Fatalf("expected error for xd")
	}
}
