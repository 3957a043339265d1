package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fastygo/taskhub/pkg/logger"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverBolt     = "bolt"

	minSecretBytes = 32
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Storage     StorageConfig
	RateLimit   RateLimitConfig
	Tasks       TasksConfig
	Bootstrap   BootstrapConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Monitor     MonitorConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnableMetrics bool
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

// RedisConfig is optional. An empty URL disables Redis and the rate limiter
// falls back to process memory.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type StorageConfig struct {
	Driver   string
	BoltPath string
}

type RateLimitConfig struct {
	Enabled         bool
	SignInPerMinute int
	Prefix          string
}

type TasksConfig struct {
	// AdminOverride lets administrators read and modify any task.
	AdminOverride bool
}

type BootstrapConfig struct {
	SeedDemo      bool
	AdminUsername string
	AdminEmail    string
	AdminPassword string
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

type MonitorConfig struct {
	// Schedule is a cron spec; "@every 10s" style descriptors are accepted.
	Schedule string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults suitable for local development.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskhub"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", true),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "taskhub"),
			User:            getString("DB_USER", "taskhub"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "taskhub"),
			TTL:    getDuration("JWT_EXPIRATION", 24*time.Hour),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getString("STORAGE_DRIVER", StorageDriverPostgres)),
			BoltPath: getString("BOLTDB_PATH", "./data/taskhub.db"),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getBool("RATE_LIMIT_ENABLED", true),
			SignInPerMinute: getInt("RATE_LIMIT_SIGNIN_PER_MINUTE", 20),
			Prefix:          getString("RATE_LIMIT_PREFIX", "taskhub:ratelimit:"),
		},
		Tasks: TasksConfig{
			AdminOverride: getBool("TASKS_ADMIN_OVERRIDE", false),
		},
		Bootstrap: BootstrapConfig{
			SeedDemo:      getBool("SEED_DEMO_DATA", false),
			AdminUsername: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
			AdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			AdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
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
		Monitor: MonitorConfig{
			Schedule: getString("MONITOR_SCHEDULE", "@every 10s"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
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

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageDriverPostgres:
	case StorageDriverBolt:
		if c.Storage.BoltPath == "" {
			errs = append(errs, errors.New("BOLTDB_PATH is required for the bolt driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION must be positive"))
	}
	if !c.IsDevelopment() && secretBytes(c.JWT.Secret) < minSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes outside development", minSecretBytes))
	}
	if err := c.LogConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.Enabled && c.RateLimit.SignInPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_SIGNIN_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}

// LogConfig converts the logger section for logger.New.
func (c *Config) LogConfig() logger.Config {
	return logger.Config{Level: c.Logger.Level, Encoding: c.Logger.Encoding}
}

// JWTSecret returns the configured secret, or a fixed development secret
// when none is set in a development environment.
func (c *Config) JWTSecret() string {
	if c.JWT.Secret == "" && c.IsDevelopment() {
		return "taskhub-development-secret-change-me"
	}
	return c.JWT.Secret
}

func secretBytes(secret string) int {
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) >= minSecretBytes {
		return len(decoded)
	}
	return len(secret)
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
