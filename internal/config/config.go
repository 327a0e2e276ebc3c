// Package config provides configuration management for the payment webhook
// service. Configuration is loaded from environment variables with sensible
// defaults and validated before the application starts.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8000)
//   - APP_ENV: Deployment environment, e.g. "development" or "production" (default: development)
//   - LOG_LEVEL: Logging level (default: info)
//   - TLS_CERT / TLS_KEY: Optional TLS certificate and key paths
//
// Webhook Settings:
//   - WEBHOOK_SECRET: Shared secret for signature verification (required)
//   - WEBHOOK_SIGNATURE_HEADER: Header carrying the provider signature (default: X-Razorpay-Signature)
//   - WEBHOOK_ALLOW_TEST_SIGNATURE: Accept the fixed test bypass token (default: false, refused in production)
//   - MAX_BODY_BYTES: Maximum accepted webhook body size in bytes (default: 1048576)
//
// Database Configuration:
//   - DATABASE_TYPE: "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./payment_events.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER,
//     POSTGRES_PASSWORD, POSTGRES_SSL_MODE: PostgreSQL connection settings
//
// Dedup Cache:
//   - REDIS_ADDRESS: Redis server address; empty disables the cache
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - DEDUP_CACHE_TTL: How long seen event ids stay cached (default: 24h)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable per-client rate limiting on the webhook route (default: false)
//   - RATE_LIMIT_RPS: Sustained requests per second per client (default: 50)
//   - RATE_LIMIT_BURST: Burst size per client (default: 100)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the payment webhook service.
// Load it with Load() and check it with Validate() before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	AppEnv   string // Deployment environment name
	LogLevel string // Logging level (debug, info, warn, error)
	TLSCert  string // TLS certificate path (optional)
	TLSKey   string // TLS key path (optional)

	// Webhook settings
	WebhookSecret      string // Shared secret for HMAC signature verification (required)
	SignatureHeader    string // Header the provider places its signature in
	AllowTestSignature bool   // Whether the fixed test bypass token is accepted
	MaxBodyBytes       int64  // Maximum webhook request body size

	// Database configuration
	DatabaseType     string // "sqlite" or "postgres"
	DatabasePath     string // SQLite database file path
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Dedup cache configuration; cache is disabled when RedisAddress is empty
	RedisAddress  string
	RedisPassword string
	RedisDB       string
	RedisPoolSize string
	DedupCacheTTL time.Duration

	// Rate limiting configuration for the webhook route
	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int
}

// Load creates a new Config instance with values loaded from environment
// variables. It does not validate; call Validate() on the result.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		TLSCert:  getEnv("TLS_CERT", ""),
		TLSKey:   getEnv("TLS_KEY", ""),

		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		SignatureHeader:    getEnv("WEBHOOK_SIGNATURE_HEADER", "X-Razorpay-Signature"),
		AllowTestSignature: getBoolEnv("WEBHOOK_ALLOW_TEST_SIGNATURE", false),
		MaxBodyBytes:       getInt64Env("MAX_BODY_BYTES", 1<<20),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./payment_events.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "payment_events"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),
		DedupCacheTTL: getDurationEnv("DEDUP_CACHE_TTL", 24*time.Hour),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", false),
		RateLimitRPS:     getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst:   getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate performs validation on the configuration to ensure all required
// fields are present and all values are valid. The application should call
// this after Load() and before starting.
func (c *Config) Validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET environment variable is required")
	}

	if c.SignatureHeader == "" {
		return fmt.Errorf("WEBHOOK_SIGNATURE_HEADER must not be empty")
	}

	// The bypass token exists for test traffic only; refusing it in
	// production keeps the open back door from shipping.
	if c.AllowTestSignature && c.IsProduction() {
		return fmt.Errorf("WEBHOOK_ALLOW_TEST_SIGNATURE must not be enabled when APP_ENV=production")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("MAX_BODY_BYTES must be a positive number")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres":
		// Valid database types
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.DatabaseType == "postgres" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
		if c.DedupCacheTTL <= 0 {
			return fmt.Errorf("DEDUP_CACHE_TTL must be a positive duration")
		}
	}

	if c.RateLimitEnabled {
		if c.RateLimitRPS < 1 {
			return fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
		}
		if c.RateLimitBurst < 1 {
			return fmt.Errorf("RATE_LIMIT_BURST must be a positive number")
		}
	}

	return nil
}

// getEnv retrieves an environment variable value or returns a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable value or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getInt64Env retrieves a 64-bit integer environment variable value or returns a default value
func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable value or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
