package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendAzTables = "aztables"
)

const (
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Config is the API server configuration read from the environment.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Debug  bool   `env:"DEBUG"`
	Port   int    `env:"PORT" envDefault:"8080"`

	JWTSecret  string `env:"JWT_SECRET,notEmpty"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`

	StorageBackend  string        `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"todo.db"`
	StorageConnStr  string        `env:"STORAGE_CONNECTION_STRING"`
	UsersTable      string        `env:"USERS_TABLE" envDefault:"users"`
	UserEmailsTable string        `env:"USER_EMAILS_TABLE" envDefault:"useremails"`
	TasksTable      string        `env:"TASKS_TABLE" envDefault:"tasks"`
	EventsQueue     string        `env:"EVENTS_QUEUE"`
	RedisConnStr    string        `env:"REDIS_CONNECTION_STRING"`
	TasksCacheTTL   time.Duration `env:"TASKS_CACHE_TTL" envDefault:"5m"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"65536"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", minBcryptCost, maxBcryptCost))
	}
	switch c.StorageBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendAzTables:
		if c.StorageConnStr == "" {
			errs = append(errs, errors.New("STORAGE_CONNECTION_STRING is required for the aztables backend"))
		}
		if c.UsersTable == "" || c.UserEmailsTable == "" || c.TasksTable == "" {
			errs = append(errs, errors.New("table names must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.EventsQueue != "" && c.StorageConnStr == "" {
		errs = append(errs, errors.New("EVENTS_QUEUE requires STORAGE_CONNECTION_STRING"))
	}
	if c.TasksCacheTTL < 0 {
		errs = append(errs, errors.New("TASKS_CACHE_TTL must not be negative"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// Production reports whether error details must be hidden from clients.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
