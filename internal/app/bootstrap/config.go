package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	minJWTSecretBytes = 32
)

// Config is the resolved runtime configuration.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID   string
	Environment string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaPrefix  string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	BcryptCost int

	SessionTTL          time.Duration
	SessionRememberTTL  time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	LockoutThreshold int
	LockoutDuration  time.Duration

	PasswordResetTTL time.Duration

	RegisterRateLimitThreshold int
	RegisterRateLimitWindow    time.Duration
	ResetRateLimitThreshold    int
	ResetRateLimitWindow       time.Duration

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// Durations are strings so "7d" and "30m" both work.
type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		HTTPPort    int    `yaml:"http_port"`
		GRPCPort    int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaPrefix  string   `yaml:"kafka_topic_prefix"`
	} `yaml:"dependencies"`
	Auth struct {
		JWTIssuer        string `yaml:"jwt_issuer"`
		TokenTTL         string `yaml:"token_ttl"`
		BcryptCost       int    `yaml:"bcrypt_cost"`
		LockoutThreshold int    `yaml:"lockout_threshold"`
		LockoutDuration  string `yaml:"lockout_duration"`
		PasswordResetTTL string `yaml:"password_reset_ttl"`
	} `yaml:"auth"`
	Session struct {
		TTL          string `yaml:"ttl"`
		RememberTTL  string `yaml:"remember_ttl"`
		CookieName   string `yaml:"cookie_name"`
		CookieSecure *bool  `yaml:"cookie_secure"`
	} `yaml:"session"`
	Outbox struct {
		PollInterval string `yaml:"poll_interval"`
		BatchSize    int    `yaml:"batch_size"`
		ClaimTTL     string `yaml:"claim_ttl"`
		MaxRetries   int    `yaml:"max_retries"`
	} `yaml:"outbox"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:                  "webauth",
		Environment:                EnvProduction,
		HTTPPort:                   8080,
		GRPCPort:                   9090,
		KafkaPrefix:                "webauth.",
		JWTIssuer:                  "webauth",
		TokenTTL:                   7 * 24 * time.Hour,
		BcryptCost:                 12,
		SessionTTL:                 24 * time.Hour,
		SessionRememberTTL:         30 * 24 * time.Hour,
		SessionCookieName:          "webauth_sid",
		SessionCookieSecure:        true,
		LockoutThreshold:           5,
		LockoutDuration:            30 * time.Minute,
		PasswordResetTTL:           10 * time.Minute,
		RegisterRateLimitThreshold: 20,
		RegisterRateLimitWindow:    time.Minute,
		ResetRateLimitThreshold:    5,
		ResetRateLimitWindow:       15 * time.Minute,
		MaxDBConns:                 20,
		OutboxPollInterval:         2 * time.Second,
		OutboxBatchSize:            100,
		OutboxClaimTTL:             30 * time.Second,
		OutboxMaxRetries:           5,
	}
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	setString(&cfg.ServiceID, f.Service.ID)
	setString(&cfg.Environment, f.Service.Environment)
	setInt(&cfg.HTTPPort, f.Service.HTTPPort)
	setInt(&cfg.GRPCPort, f.Service.GRPCPort)
	setString(&cfg.DatabaseURL, f.Dependencies.PostgresURL)
	setString(&cfg.RedisURL, f.Dependencies.RedisURL)
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	setString(&cfg.KafkaPrefix, f.Dependencies.KafkaPrefix)
	setString(&cfg.JWTIssuer, f.Auth.JWTIssuer)
	setInt(&cfg.BcryptCost, f.Auth.BcryptCost)
	setInt(&cfg.LockoutThreshold, f.Auth.LockoutThreshold)
	setString(&cfg.SessionCookieName, f.Session.CookieName)
	if f.Session.CookieSecure != nil {
		cfg.SessionCookieSecure = *f.Session.CookieSecure
	}
	setInt(&cfg.OutboxBatchSize, f.Outbox.BatchSize)
	setInt(&cfg.OutboxMaxRetries, f.Outbox.MaxRetries)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"auth.token_ttl", f.Auth.TokenTTL, &cfg.TokenTTL},
		{"auth.lockout_duration", f.Auth.LockoutDuration, &cfg.LockoutDuration},
		{"auth.password_reset_ttl", f.Auth.PasswordResetTTL, &cfg.PasswordResetTTL},
		{"session.ttl", f.Session.TTL, &cfg.SessionTTL},
		{"session.remember_ttl", f.Session.RememberTTL, &cfg.SessionRememberTTL},
		{"outbox.poll_interval", f.Outbox.PollInterval, &cfg.OutboxPollInterval},
		{"outbox.claim_ttl", f.Outbox.ClaimTTL, &cfg.OutboxClaimTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := parseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Environment = strings.ToLower(envOrDefault("ENVIRONMENT", cfg.Environment))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaPrefix = envOrDefault("KAFKA_TOPIC_PREFIX", cfg.KafkaPrefix)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.SessionCookieName = envOrDefault("SESSION_COOKIE_NAME", cfg.SessionCookieName)
	cfg.SessionCookieSecure = envBool("SESSION_COOKIE_SECURE", cfg.SessionCookieSecure)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_COST", cfg.BcryptCost)
	cfg.LockoutThreshold = envInt("LOCKOUT_THRESHOLD", cfg.LockoutThreshold)
	cfg.RegisterRateLimitThreshold = envInt("REGISTER_RATE_LIMIT_THRESHOLD", cfg.RegisterRateLimitThreshold)
	cfg.ResetRateLimitThreshold = envInt("RESET_RATE_LIMIT_THRESHOLD", cfg.ResetRateLimitThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"TOKEN_TTL", &cfg.TokenTTL},
		{"SESSION_TTL", &cfg.SessionTTL},
		{"SESSION_REMEMBER_TTL", &cfg.SessionRememberTTL},
		{"LOCKOUT_DURATION", &cfg.LockoutDuration},
		{"PASSWORD_RESET_TTL", &cfg.PasswordResetTTL},
		{"REGISTER_RATE_LIMIT_WINDOW", &cfg.RegisterRateLimitWindow},
		{"RESET_RATE_LIMIT_WINDOW", &cfg.ResetRateLimitWindow},
		{"OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval},
		{"OUTBOX_CLAIM_TTL", &cfg.OutboxClaimTTL},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(os.Getenv(d.name))
		if raw == "" {
			continue
		}
		v, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	if cfg.Environment == EnvProduction {
		cfg.SessionCookieSecure = true
	}
	return nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if len(c.JWTSecret) < minJWTSecretBytes {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretBytes)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("missing REDIS_URL")
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("ENVIRONMENT must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.TokenTTL <= 0 || c.SessionTTL <= 0 || c.SessionRememberTTL <= 0 || c.LockoutDuration <= 0 {
		return fmt.Errorf("token, session and lockout durations must be positive")
	}
	if c.LockoutThreshold <= 0 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be positive")
	}
	return nil
}

// parseDuration accepts Go durations plus a whole-day suffix ("7d").
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
