package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	Push     PushConfig
}

// ServerConfig holds process-level settings
type ServerConfig struct {
	Env         string
	MetricsPort string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// RedisConfig holds the snapshot store connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JobsConfig holds batch engine and scheduling defaults
type JobsConfig struct {
	BatchSize      int
	MaxConcurrency int
	RetryAttempts  int
	SnapshotTTL    time.Duration
	EventHorizon   time.Duration

	PointsExpirySchedule    string
	DailyDigestSchedule     string
	ScheduleRefreshInterval string
}

// PushConfig holds notification delivery settings
type PushConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Env:         getEnv("SERVER_ENV", "development"),
			MetricsPort: getEnv("METRICS_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "plaza"),
			Database:  getEnv("DB_DATABASE", "main"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Jobs: JobsConfig{
			BatchSize:      getIntEnv("JOBS_BATCH_SIZE", 1000),
			MaxConcurrency: getIntEnv("JOBS_MAX_CONCURRENCY", 5),
			RetryAttempts:  getIntEnv("JOBS_RETRY_ATTEMPTS", 3),
			SnapshotTTL:    getDurationEnv("JOBS_SNAPSHOT_TTL", 24*time.Hour),
			EventHorizon:   getDurationEnv("JOBS_EVENT_HORIZON", 7*24*time.Hour),

			PointsExpirySchedule:    getEnv("JOBS_POINTS_EXPIRY_SCHEDULE", "0 * * * *"),
			DailyDigestSchedule:     getEnv("JOBS_DAILY_DIGEST_SCHEDULE", "0 8 * * *"),
			ScheduleRefreshInterval: getEnv("JOBS_SCHEDULE_REFRESH", "@every 30m"),
		},
		Push: PushConfig{
			Enabled: getBoolEnv("PUSH_ENABLED", false),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if c.Server.MetricsPort == "" {
		errs = append(errs, errors.New("METRICS_PORT is required"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	// Redis validation
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("REDIS_DB must not be negative"))
	}

	// Jobs validation
	if c.Jobs.BatchSize <= 0 {
		errs = append(errs, errors.New("JOBS_BATCH_SIZE must be positive"))
	}
	if c.Jobs.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("JOBS_MAX_CONCURRENCY must be positive"))
	}
	if c.Jobs.RetryAttempts <= 0 {
		errs = append(errs, errors.New("JOBS_RETRY_ATTEMPTS must be positive"))
	}
	if c.Jobs.SnapshotTTL <= 0 {
		errs = append(errs, errors.New("JOBS_SNAPSHOT_TTL must be positive"))
	}
	if c.Jobs.EventHorizon <= 0 {
		errs = append(errs, errors.New("JOBS_EVENT_HORIZON must be positive"))
	}
	if c.Jobs.PointsExpirySchedule == "" {
		errs = append(errs, errors.New("JOBS_POINTS_EXPIRY_SCHEDULE is required"))
	}
	if c.Jobs.DailyDigestSchedule == "" {
		errs = append(errs, errors.New("JOBS_DAILY_DIGEST_SCHEDULE is required"))
	}
	if c.Jobs.ScheduleRefreshInterval == "" {
		errs = append(errs, errors.New("JOBS_SCHEDULE_REFRESH is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
