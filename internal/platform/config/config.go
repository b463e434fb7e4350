package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSecret      string
	Environment    string
	SeedTenantName string
	RunMigrations  bool
	RunSeed        bool
	// MigrationsDir overrides the embedded migrations when set.
	MigrationsDir      string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool

	EmailFrom          string
	EmailEnabled       bool
	EmailRatePerSecond float64
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool

	Engine Engine

	LedgerBackend string
	LedgerTTL     time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Engine holds the assessment lifecycle and escalation settings.
type Engine struct {
	ManagerAfterDays           int
	HRAfterDays                int
	RequireCommentsForExtremes bool
	NormalReminderIntervalDays int
	Timezone                   string
	PolicyFile                 string

	ReminderInterval    time.Duration
	ReminderTickTimeout time.Duration
	TickConcurrency     int

	DispatchMaxAttempts int
	DispatchBaseBackoff time.Duration
	DispatchMaxBackoff  time.Duration
	DispatchSendTimeout time.Duration
	// TransitionNotifyTimeout bounds the background delivery of notices
	// raised by a lifecycle action.
	TransitionNotifyTimeout time.Duration
}

const (
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
	LedgerMemory   = "memory"
)

// Load reads the environment after merging an optional .env file. A
// policy file, when configured, overrides the engine thresholds.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		Environment:        getEnv("APP_ENV", "development"),
		SeedTenantName:     getEnv("SEED_TENANT_NAME", "Default Tenant"),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:            getEnvBool("RUN_SEED", false),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", ""),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		EmailFrom:          getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:       getEnvBool("EMAIL_ENABLED", false),
		EmailRatePerSecond: getEnvFloat("EMAIL_RATE_PER_SECOND", 5),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
		Engine: Engine{
			ManagerAfterDays:           getEnvInt("ESCALATION_MANAGER_DAYS", 3),
			HRAfterDays:                getEnvInt("ESCALATION_HR_DAYS", 10),
			RequireCommentsForExtremes: getEnvBool("REQUIRE_COMMENTS_FOR_EXTREMES", true),
			NormalReminderIntervalDays: getEnvInt("NORMAL_REMINDER_INTERVAL_DAYS", 7),
			Timezone:                   getEnv("ENGINE_TIMEZONE", "UTC"),
			PolicyFile:                 getEnv("ESCALATION_POLICY_FILE", ""),
			ReminderInterval:           getEnvDuration("REMINDER_INTERVAL", 24*time.Hour),
			ReminderTickTimeout:        getEnvDuration("REMINDER_TICK_TIMEOUT", 5*time.Minute),
			TickConcurrency:            getEnvInt("TICK_CONCURRENCY", 8),
			DispatchMaxAttempts:        getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
			DispatchBaseBackoff:        getEnvDuration("DISPATCH_BASE_BACKOFF", 200*time.Millisecond),
			DispatchMaxBackoff:         getEnvDuration("DISPATCH_MAX_BACKOFF", 5*time.Second),
			DispatchSendTimeout:        getEnvDuration("DISPATCH_SEND_TIMEOUT", 10*time.Second),
			TransitionNotifyTimeout:    getEnvDuration("TRANSITION_NOTIFY_TIMEOUT", 30*time.Second),
		},
		LedgerBackend: getEnv("LEDGER_BACKEND", LedgerPostgres),
		LedgerTTL:     getEnvDuration("LEDGER_TTL", 720*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}

	if cfg.Engine.PolicyFile != "" {
		policy, err := LoadPolicyFile(cfg.Engine.PolicyFile)
		if err != nil {
			return cfg, err
		}
		policy.Apply(&cfg.Engine)
	}
	return cfg, nil
}

func (e Engine) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_TIMEZONE: %w", err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// Validate checks process settings. Escalation thresholds are validated by
// escalation.NewPolicy so the rule lives in one place.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	switch c.LedgerBackend {
	case LedgerPostgres, LedgerRedis, LedgerMemory:
	default:
		return fmt.Errorf("LEDGER_BACKEND must be postgres, redis or memory, got %q", c.LedgerBackend)
	}
	if c.LedgerBackend == LedgerRedis && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("REDIS_ADDR must be set when LEDGER_BACKEND is redis")
	}
	if c.Engine.NormalReminderIntervalDays < 0 {
		return fmt.Errorf("NORMAL_REMINDER_INTERVAL_DAYS must not be negative")
	}
	if c.Engine.TickConcurrency <= 0 {
		return fmt.Errorf("TICK_CONCURRENCY must be positive")
	}
	if c.Engine.DispatchMaxAttempts <= 0 {
		return fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be positive")
	}
	if _, err := c.Engine.Location(); err != nil {
		return err
	}
	return nil
}
