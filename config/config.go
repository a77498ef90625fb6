// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Counter stores a database-backed sequence can allocate from
const (
	BackendPostgres = "postgres"
	BackendTable    = "table"
	BackendRedis    = "redis"
)

// Config holds all configuration for the sequence allocator and its tooling
type Config struct {
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Sequence SequenceConfig `json:"sequence"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" validate:"oneof=postgres sqlite"`
	Host            string        `json:"host"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	SQLitePath      string        `json:"sqlite_path"`
	MaxOpenConns    int           `json:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `json:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type CacheConfig struct {
	Enabled  bool   `json:"enabled"`
	RedisURL string `json:"redis_url"`
	RedisDB  int    `json:"redis_db" validate:"min=0"`
}

type SequenceConfig struct {
	// UseDatabase routes bound sequences through a store-native counter
	UseDatabase bool `json:"use_database"`
	// EnforceExist fails allocation when the counter object was not provisioned
	EnforceExist bool `json:"enforce_exist"`
	// LazyCreate provisions missing counter objects on first use
	LazyCreate  bool   `json:"lazy_create"`
	Backend     string `json:"backend" validate:"oneof=postgres table redis"`
	RedisPrefix string `json:"redis_prefix"`
}

type LoggingConfig struct {
	Level        string `json:"level" validate:"oneof=debug info warn error"`
	Format       string `json:"format" validate:"oneof=json text"`
	Output       string `json:"output" validate:"oneof=stdout file both"`
	FilePath     string `json:"file_path"`
	MaxSize      int    `json:"max_size"` // MB
	MaxBackups   int    `json:"max_backups"`
	MaxAge       int    `json:"max_age"` // days
	Compress     bool   `json:"compress"`
	EnableCaller bool   `json:"enable_caller"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port" validate:"min=1,max=65535"`
	Path    string `json:"path"`
}

// LoadConfig loads and validates configuration from environment variables. Values
// from the given env files (".env" when none are given) fill in variables that are
// not already set; missing files are skipped.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          getEnvString("DB_DRIVER", DriverPostgres),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			SQLitePath:      getEnvString("DB_SQLITE_PATH", "demo.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", false),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", false),
			RedisURL: getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:  getEnvInt("CACHE_REDIS_DB", 0),
		},
		Sequence: SequenceConfig{
			UseDatabase:  getEnvBool("SEQUENCE_USE_DATABASE", false),
			EnforceExist: getEnvBool("SEQUENCE_ENFORCE_EXIST", false),
			LazyCreate:   getEnvBool("SEQUENCE_LAZY_CREATE", false),
			Backend:      getEnvString("SEQUENCE_BACKEND", BackendPostgres),
			RedisPrefix:  getEnvString("SEQUENCE_REDIS_PREFIX", "demo:seq:"),
		},
		Logging: LoggingConfig{
			Level:        getEnvString("LOG_LEVEL", "info"),
			Format:       getEnvString("LOG_FORMAT", "json"),
			Output:       getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:     getEnvString("LOG_FILE_PATH", "/var/log/demo-sequences/app.log"),
			MaxSize:      getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:       getEnvInt("LOG_MAX_AGE", 30),
			Compress:     getEnvBool("LOG_COMPRESS", true),
			EnableCaller: getEnvBool("LOG_ENABLE_CALLER", false),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", false),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFiles(files []string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateConfig validates the configuration values
func ValidateConfig(cfg *Config) error {
	var errors []string

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !asValidationErrors(err, &fieldErrs) {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			errors = append(errors, fmt.Sprintf("%s failed on '%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	// Validate database configuration
	if cfg.Database.Driver == DriverPostgres {
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required")
		}
		if cfg.Database.Name == "" {
			errors = append(errors, "DB_NAME is required")
		}
	}
	if cfg.Database.Driver == DriverSQLite && cfg.Database.SQLitePath == "" {
		errors = append(errors, "DB_SQLITE_PATH is required for the sqlite driver")
	}
	if cfg.Database.MaxIdleConns > cfg.Database.MaxOpenConns {
		errors = append(errors, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	// Validate sequence configuration
	if cfg.Sequence.UseDatabase {
		switch cfg.Sequence.Backend {
		case BackendPostgres:
			if cfg.Database.Driver != DriverPostgres {
				errors = append(errors, "SEQUENCE_BACKEND=postgres requires DB_DRIVER=postgres")
			}
		case BackendRedis:
			if cfg.Cache.RedisURL == "" {
				errors = append(errors, "CACHE_REDIS_URL is required when SEQUENCE_BACKEND=redis")
			}
			if cfg.Sequence.RedisPrefix == "" {
				errors = append(errors, "SEQUENCE_REDIS_PREFIX is required when SEQUENCE_BACKEND=redis")
			}
		}
	}
	if cfg.Sequence.EnforceExist && cfg.Sequence.LazyCreate {
		errors = append(errors, "SEQUENCE_ENFORCE_EXIST and SEQUENCE_LAZY_CREATE are mutually exclusive")
	}

	// Validate logging configuration
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// asValidationErrors lives outside ValidateConfig, where errors names the message slice
func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	return errors.As(err, target)
}
