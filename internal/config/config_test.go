package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate_ValidConfig(t *testing.T) {
	cfg := validBaseConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestConfig_Validate_InvalidServerEnv(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Env = "invalid"

	err := cfg.Validate()
	if err == nil {
		t.Error("expected error for invalid SERVER_ENV")
	}
	if !strings.Contains(err.Error(), "SERVER_ENV") {
		t.Errorf("expected error to mention SERVER_ENV, got: %v", err)
	}
}

func TestConfig_Validate_MissingMetricsPort(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.MetricsPort = ""

	err := cfg.Validate()
	if err == nil {
		t.Error("expected error for missing METRICS_PORT")
	}
	if !strings.Contains(err.Error(), "METRICS_PORT") {
		t.Errorf("expected error to mention METRICS_PORT, got: %v", err)
	}
}

func TestConfig_Validate_MissingDatabaseHost(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	if err == nil {
		t.Error("expected error for missing DB_HOST")
	}
	if !strings.Contains(err.Error(), "DB_HOST") {
		t.Errorf("expected error to mention DB_HOST, got: %v", err)
	}
}

func TestConfig_Validate_MissingRedisAddr(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Error("expected error for missing REDIS_ADDR")
	}
	if !strings.Contains(err.Error(), "REDIS_ADDR") {
		t.Errorf("expected error to mention REDIS_ADDR, got: %v", err)
	}
}

func TestConfig_Validate_InvalidBatchSize(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Jobs.BatchSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Error("expected error for zero JOBS_BATCH_SIZE")
	}
	if !strings.Contains(err.Error(), "JOBS_BATCH_SIZE") {
		t.Errorf("expected error to mention JOBS_BATCH_SIZE, got: %v", err)
	}
}

func TestConfig_Validate_InvalidConcurrency(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Jobs.MaxConcurrency = -1

	err := cfg.Validate()
	if err == nil {
		t.Error("expected error for negative JOBS_MAX_CONCURRENCY")
	}
	if !strings.Contains(err.Error(), "JOBS_MAX_CONCURRENCY") {
		t.Errorf("expected error to mention JOBS_MAX_CONCURRENCY, got: %v", err)
	}
}

func TestConfig_Validate_MissingSchedules(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Jobs.PointsExpirySchedule = ""
	cfg.Jobs.DailyDigestSchedule = ""

	err := cfg.Validate()
	if err == nil {
		t.Error("expected error for missing schedules")
	}
	if !strings.Contains(err.Error(), "JOBS_POINTS_EXPIRY_SCHEDULE") {
		t.Errorf("expected error to mention JOBS_POINTS_EXPIRY_SCHEDULE, got: %v", err)
	}
	if !strings.Contains(err.Error(), "JOBS_DAILY_DIGEST_SCHEDULE") {
		t.Errorf("expected error to mention JOBS_DAILY_DIGEST_SCHEDULE, got: %v", err)
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Env:         "invalid",
			MetricsPort: "",
		},
		Database: DatabaseConfig{
			Host: "",
		},
		Jobs: JobsConfig{
			BatchSize: 0,
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Error("expected multiple validation errors")
	}

	errStr := err.Error()
	expectedFields := []string{"SERVER_ENV", "METRICS_PORT", "DB_HOST", "REDIS_ADDR", "JOBS_BATCH_SIZE", "JOBS_SNAPSHOT_TTL"}
	for _, field := range expectedFields {
		if !strings.Contains(errStr, field) {
			t.Errorf("expected error to mention %s, got: %v", field, err)
		}
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Env: "development"}}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return true")
	}

	cfg.Server.Env = "production"
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return false in production")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Env: "production"}}
	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}

	cfg.Server.Env = "development"
	if cfg.IsProduction() {
		t.Error("expected IsProduction() to return false in development")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Jobs.BatchSize != 1000 {
		t.Errorf("expected default batch size 1000, got %d", cfg.Jobs.BatchSize)
	}
	if cfg.Jobs.MaxConcurrency != 5 {
		t.Errorf("expected default max concurrency 5, got %d", cfg.Jobs.MaxConcurrency)
	}
	if cfg.Jobs.RetryAttempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Jobs.RetryAttempts)
	}
	if cfg.Jobs.SnapshotTTL != 24*time.Hour {
		t.Errorf("expected default snapshot TTL 24h, got %v", cfg.Jobs.SnapshotTTL)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got: %v", err)
	}
}

// validBaseConfig returns a minimal valid configuration for testing
func validBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Env:         "development",
			MetricsPort: "9090",
		},
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      "8000",
			Namespace: "plaza",
			Database:  "main",
			User:      "root",
			Password:  "root",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Jobs: JobsConfig{
			BatchSize:      1000,
			MaxConcurrency: 5,
			RetryAttempts:  3,
			SnapshotTTL:    24 * time.Hour,
			EventHorizon:   7 * 24 * time.Hour,

			PointsExpirySchedule:    "0 * * * *",
			DailyDigestSchedule:     "0 8 * * *",
			ScheduleRefreshInterval: "@every 30m",
		},
		Push: PushConfig{
			Enabled: false,
		},
	}
}
