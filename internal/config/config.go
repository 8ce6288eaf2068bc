package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Scheduler    SchedulerConfig
	Notification NotificationConfig
	Registry     RegistryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines parameters for the admin bearer tokens that guard
// manual sweep endpoints.
type AuthConfig struct {
	JWTSecret            string
	AdminTokenTTLMinutes int
}

// VerificationConfig tunes the two-factor flow.
type VerificationConfig struct {
	OTPDigits             int
	OTPTTLMinutes         int
	MaxAttempts           int
	ResendCooldownSeconds int
	MaxResends            int
	AccessTTLMinutes      int
}

// SchedulerConfig tunes the lifecycle sweeps. Cadence is a deployment
// concern; correctness never depends on it.
type SchedulerConfig struct {
	Enabled              bool
	SweepIntervalSeconds int
	InviteBatchSize      int
	InviteBatchDelayMS   int
}

// NotificationConfig holds sender identity and stakeholder addresses.
type NotificationConfig struct {
	EmailFrom        string
	SuperAdminEmails []string
}

// RegistryConfig configures the voter registry collaborator and its
// degraded-mode fallback roster ("id:name:email" entries, semicolon
// separated).
type RegistryConfig struct {
	FallbackRoster string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "election-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AdminTokenTTLMinutes: getEnvAsInt("AUTH_ADMIN_TOKEN_TTL_MINUTES", 60),
		},
		Verification: VerificationConfig{
			OTPDigits:             getEnvAsInt("VERIFICATION_OTP_DIGITS", 6),
			OTPTTLMinutes:         getEnvAsInt("VERIFICATION_OTP_TTL_MINUTES", 10),
			MaxAttempts:           getEnvAsInt("VERIFICATION_MAX_ATTEMPTS", 3),
			ResendCooldownSeconds: getEnvAsInt("VERIFICATION_RESEND_COOLDOWN_SECONDS", 60),
			MaxResends:            getEnvAsInt("VERIFICATION_MAX_RESENDS", 5),
			AccessTTLMinutes:      getEnvAsInt("VERIFICATION_ACCESS_TTL_MINUTES", 60),
		},
		Scheduler: SchedulerConfig{
			Enabled:              getEnvAsBool("SCHEDULER_ENABLED", true),
			SweepIntervalSeconds: getEnvAsInt("SCHEDULER_SWEEP_INTERVAL_SECONDS", 60),
			InviteBatchSize:      getEnvAsInt("SCHEDULER_INVITE_BATCH_SIZE", 25),
			InviteBatchDelayMS:   getEnvAsInt("SCHEDULER_INVITE_BATCH_DELAY_MS", 500),
		},
		Notification: NotificationConfig{
			EmailFrom:        getEnv("NOTIFY_EMAIL_FROM", "elections@example.com"),
			SuperAdminEmails: splitList(os.Getenv("NOTIFY_SUPER_ADMIN_EMAILS")),
		},
		Registry: RegistryConfig{
			FallbackRoster: os.Getenv("REGISTRY_FALLBACK_ROSTER"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// OTPTTL returns the one-time code lifetime.
func (v VerificationConfig) OTPTTL() time.Duration {
	return time.Duration(v.OTPTTLMinutes) * time.Minute
}

// AccessTTL returns the access token lifetime.
func (v VerificationConfig) AccessTTL() time.Duration {
	return time.Duration(v.AccessTTLMinutes) * time.Minute
}

// ResendCooldown returns the minimum interval between code sends.
func (v VerificationConfig) ResendCooldown() time.Duration {
	return time.Duration(v.ResendCooldownSeconds) * time.Second
}

// SweepInterval returns the scheduler cadence.
func (s SchedulerConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// InviteBatchDelay returns the pause between invite batches.
func (s SchedulerConfig) InviteBatchDelay() time.Duration {
	return time.Duration(s.InviteBatchDelayMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
