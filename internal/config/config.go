package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the gateway.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Upstream    UpstreamConfig
	Guard       GuardConfig
	Cookies     CookieConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// UpstreamConfig points the gateway at the external pharmacy REST API.
type UpstreamConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// GuardConfig controls the session lifecycle timings. Defaults mirror the
// dashboard behaviour: 20 minute idle window, 60 second check cadence,
// refresh when less than 5 minutes of access-token lifetime remain.
type GuardConfig struct {
	IdleTimeout      time.Duration
	CheckInterval    time.Duration
	RefreshThreshold time.Duration
}

// CookieConfig controls the cookies handed to the operator's browser.
type CookieConfig struct {
	Domain       string
	Secure       bool
	SignInPath   string
	RememberDays int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type OutboxConfig struct {
	Path          string
	DrainInterval time.Duration
	BatchSize     int
	MaxRetry      int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the gateway can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "station-gateway"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getString("PHARMACY_API_URL", "http://localhost:4000/api"),
			RequestTimeout: getDuration("PHARMACY_API_TIMEOUT", 10*time.Second),
		},
		Guard: GuardConfig{
			IdleTimeout:      getDuration("GUARD_IDLE_TIMEOUT", 20*time.Minute),
			CheckInterval:    getDuration("GUARD_CHECK_INTERVAL", time.Minute),
			RefreshThreshold: getDuration("GUARD_REFRESH_THRESHOLD", 5*time.Minute),
		},
		Cookies: CookieConfig{
			Domain:       getString("COOKIE_DOMAIN", ""),
			Secure:       getBool("COOKIE_SECURE", false),
			SignInPath:   getString("SIGNIN_PATH", "/auth/signin"),
			RememberDays: getInt("COOKIE_REMEMBER_DAYS", 30),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "station_db"),
			User:            getString("DB_USER", "station_user"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Outbox: OutboxConfig{
			Path:          getString("OUTBOX_PATH", "./data/outbox.db"),
			DrainInterval: getDuration("OUTBOX_DRAIN_INTERVAL", 30*time.Second),
			BatchSize:     getInt("OUTBOX_BATCH_SIZE", 50),
			MaxRetry:      getInt("OUTBOX_MAX_RETRY", 3),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
