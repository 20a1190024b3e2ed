package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Audit worker pool
	AuditWorkerCount   int
	AuditQueueSize     int
	AuditBatchSize     int
	AuditFlushInterval time.Duration

	// Identity cache
	IdentityCacheTTL time.Duration

	// Admin
	AdminTokenHash string
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		AuditWorkerCount:   getEnvInt("AUDIT_WORKER_COUNT", 2),
		AuditQueueSize:     getEnvInt("AUDIT_QUEUE_SIZE", 10000),
		AuditBatchSize:     getEnvInt("AUDIT_BATCH_SIZE", 500),
		AuditFlushInterval: getEnvDuration("AUDIT_FLUSH_INTERVAL", 1*time.Second),

		IdentityCacheTTL: getEnvDuration("IDENTITY_CACHE_TTL", 5*time.Minute),

		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}

	// Optional collaborators - features degrade when absent
	cfg.ClickHouseURL = getEnv("CLICKHOUSE_URL", "")
	cfg.RedisURL = getEnv("REDIS_URL", "")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
