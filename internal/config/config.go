package config

import (
	"fmt"
	"os"
	"strconv"
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
	Schedule     ScheduleConfig
	Terminal     TerminalConfig
	Notification NotificationConfig
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
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// ConnectAttempts bounds the startup retries while the database comes up.
	ConnectAttempts int
	// ApplicationName and TimeZone are sent as session parameters on every
	// connection; TimeZone follows SCHEDULE_TIMEZONE so NOW() agrees with the venue clock.
	ApplicationName string
	TimeZone        string
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// ScheduleConfig controls branch operating-hours evaluation and polling.
type ScheduleConfig struct {
	Timezone             string
	CacheTTLSeconds      int
	GatePollIntervalMS   int
	ClosedPollIntervalMS int
	FailureThreshold     int
	WatchIntervalSeconds int
}

// TerminalConfig configures the cashier/guard terminal binary.
type TerminalConfig struct {
	APIURL     string
	RoutesFile string
	Token      string
	Username   string
	Password   string
	Path       string
	TimeoutMS  int
}

// NotificationConfig controls webhook delivery of domain events. An empty
// WebhookURL disables delivery.
type NotificationConfig struct {
	WebhookURL       string
	WebhookTimeoutMS int
	QueueSize        int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ebingo-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
			ApplicationName: getEnv("APP_NAME", "ebingo-service"),
			TimeZone:        getEnv("SCHEDULE_TIMEZONE", "Asia/Manila"),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Schedule: ScheduleConfig{
			Timezone:             getEnv("SCHEDULE_TIMEZONE", "Asia/Manila"),
			CacheTTLSeconds:      getEnvAsInt("SCHEDULE_CACHE_TTL_SECONDS", 30),
			GatePollIntervalMS:   getEnvAsInt("GATE_POLL_INTERVAL_MS", 5000),
			ClosedPollIntervalMS: getEnvAsInt("CLOSED_POLL_INTERVAL_MS", 1000),
			FailureThreshold:     getEnvAsInt("SCHEDULE_FAILURE_THRESHOLD", 3),
			WatchIntervalSeconds: getEnvAsInt("SCHEDULE_WATCH_INTERVAL_SECONDS", 30),
		},
		Terminal: TerminalConfig{
			APIURL:     getEnv("TERMINAL_API_URL", "http://127.0.0.1:8080"),
			RoutesFile: os.Getenv("TERMINAL_ROUTES_FILE"),
			Token:      os.Getenv("TERMINAL_TOKEN"),
			Username:   os.Getenv("TERMINAL_USERNAME"),
			Password:   os.Getenv("TERMINAL_PASSWORD"),
			Path:       getEnv("TERMINAL_PATH", "/guard"),
			TimeoutMS:  getEnvAsInt("TERMINAL_TIMEOUT_MS", 4000),
		},
		Notification: NotificationConfig{
			WebhookURL:       os.Getenv("NOTIFY_WEBHOOK_URL"),
			WebhookTimeoutMS: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_MS", 3000),
			QueueSize:        getEnvAsInt("NOTIFY_QUEUE_SIZE", 128),
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

// CacheTTL returns how long a branch schedule may be served from cache.
func (s ScheduleConfig) CacheTTL() time.Duration {
	if s.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// GatePollInterval is the re-evaluation cadence of a mounted guarded view.
func (s ScheduleConfig) GatePollInterval() time.Duration {
	return millis(s.GatePollIntervalMS, 5*time.Second)
}

// ClosedPollInterval is the cadence of the closed page poller.
func (s ScheduleConfig) ClosedPollInterval() time.Duration {
	return millis(s.ClosedPollIntervalMS, time.Second)
}

// WatchInterval is the cadence of the server-side branch window watcher; zero disables it.
func (s ScheduleConfig) WatchInterval() time.Duration {
	if s.WatchIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(s.WatchIntervalSeconds) * time.Second
}

// Timeout returns the per-request timeout used by the terminal API client.
func (t TerminalConfig) Timeout() time.Duration {
	return millis(t.TimeoutMS, 4*time.Second)
}

// WebhookTimeout bounds one webhook delivery.
func (n NotificationConfig) WebhookTimeout() time.Duration {
	return millis(n.WebhookTimeoutMS, 3*time.Second)
}

func millis(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Millisecond
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
