// Package config manages application configuration for the Plaza
// scheduler.
//
// The config package loads and validates configuration from environment
// variables. All configuration is centralized here to provide a single
// source of truth.
//
// # Configuration Loading
//
// Configuration is loaded from environment variables:
//
//	cfg, _ := config.Load()
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
// Configuration is organized into logical groups:
//
//   - ServerConfig: process-level settings (environment, metrics port)
//   - DatabaseConfig: SurrealDB connection settings
//   - RedisConfig: snapshot store connection settings
//   - JobsConfig: batch engine defaults and recurring schedules
//   - PushConfig: notification delivery settings
//
// # Environment Variables
//
// Key environment variables:
//
//	SERVER_ENV                 - development, production, or test
//	METRICS_PORT               - Prometheus metrics port (default: 9090)
//	DB_HOST / DB_PORT          - SurrealDB host and port
//	DB_NAMESPACE / DB_DATABASE - SurrealDB namespace and database
//	REDIS_ADDR                 - Redis address (default: localhost:6379)
//	JOBS_BATCH_SIZE            - items per batch (default: 1000)
//	JOBS_MAX_CONCURRENCY       - concurrent batches per job (default: 5)
//	JOBS_RETRY_ATTEMPTS        - per-item attempts (default: 3)
//	JOBS_SNAPSHOT_TTL          - progress snapshot TTL (default: 24h)
//	PUSH_ENABLED               - enable notification delivery
package config
