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
	Notification NotificationConfig
	Realtime     RealtimeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// PublicBaseURL is embedded in outbound emails (resolve links).
	PublicBaseURL string
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
	Level  string
	Format string
}

// AuthConfig holds the secret shared with the identity provider that signs access tokens.
type AuthConfig struct {
	JWTSecret string
}

// NotificationConfig configures the outbound email channel used for emergency fan-out.
type NotificationConfig struct {
	EmailAPIKey    string
	EmailAPIURL    string
	EmailFrom      string
	MaxWorkers     int
	RequestTimeout time.Duration
	RetryCount     int
}

// RealtimeConfig tunes the change feed and dashboard refresh behavior.
type RealtimeConfig struct {
	DebounceWindow    time.Duration
	StatsPollInterval time.Duration
	ChannelPrefix     string
	NotifyChannel     string
	SubscriberBuffer  int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	debounce, err := getEnvAsDuration("REALTIME_DEBOUNCE", 250*time.Millisecond)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getEnvAsDuration("STATS_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	emailTimeout, err := getEnvAsDuration("EMAIL_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "hospital-ops"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
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
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Notification: NotificationConfig{
			// Left empty when unset; the dispatcher reports it as a configuration error.
			EmailAPIKey:    os.Getenv("RESEND_API_KEY"),
			EmailAPIURL:    getEnv("EMAIL_API_URL", "https://api.resend.com"),
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "Hospital Emergency <onboarding@resend.dev>"),
			MaxWorkers:     getEnvAsInt("NOTIFY_MAX_WORKERS", 1),
			RequestTimeout: emailTimeout,
			RetryCount:     getEnvAsInt("EMAIL_RETRY_COUNT", 2),
		},
		Realtime: RealtimeConfig{
			DebounceWindow:    debounce,
			StatsPollInterval: pollInterval,
			ChannelPrefix:     getEnv("REALTIME_CHANNEL_PREFIX", "changes"),
			NotifyChannel:     getEnv("REALTIME_NOTIFY_CHANNEL", "row_changes"),
			SubscriberBuffer:  getEnvAsInt("REALTIME_SUBSCRIBER_BUFFER", 256),
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

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return parsed, nil
}
