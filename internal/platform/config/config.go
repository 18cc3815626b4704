// Package config loads application configuration from environment variables.
// All variables use the FORGE_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	API         APIConfig
	Session     SessionConfig
	Generation  GenerationConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. The database is
// optional: without it, events are kept in memory.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// CacheConfig holds Redis connection settings for the session store.
type CacheConfig struct {
	URL string
}

// APIConfig holds settings for the remote content/quiz backend.
type APIConfig struct {
	BaseURL        string
	Key            string
	ValidateSchema bool
}

// SessionConfig holds session-store settings.
type SessionConfig struct {
	Backend string        // "memory" or "redis"
	TTL     time.Duration // idle lifetime of redis-backed sessions
}

// GenerationConfig holds generation-flow tuning.
type GenerationConfig struct {
	DebounceQuiet time.Duration // quiet period for the generate trigger
	SubmissionTTL time.Duration // replay window for graded submissions
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with FORGE_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FORGE_SERVER_PORT", 8080),
			Host: envStr("FORGE_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:             envStr("FORGE_DATABASE_URL", ""),
			MaxConns:        envInt("FORGE_DATABASE_MAX_CONNS", 25),
			MinConns:        envInt("FORGE_DATABASE_MIN_CONNS", 5),
			MaxConnLifetime: envDuration("FORGE_DATABASE_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: envDuration("FORGE_DATABASE_MAX_CONN_IDLE_TIME", 5*time.Minute),
		},
		Cache: CacheConfig{
			URL: envStr("FORGE_CACHE_URL", "redis://localhost:6379"),
		},
		API: APIConfig{
			BaseURL:        envStr("FORGE_API_BASE_URL", ""),
			Key:            envStr("FORGE_API_KEY", ""),
			ValidateSchema: envBool("FORGE_API_VALIDATE_SCHEMA", true),
		},
		Session: SessionConfig{
			Backend: envStr("FORGE_SESSION_BACKEND", "memory"),
			TTL:     envDuration("FORGE_SESSION_TTL", 24*time.Hour),
		},
		Generation: GenerationConfig{
			DebounceQuiet: envDuration("FORGE_GENERATION_DEBOUNCE", 400*time.Millisecond),
			SubmissionTTL: envDuration("FORGE_SUBMISSION_TTL", 15*time.Minute),
		},
		Log: LogConfig{
			Level:  envStr("FORGE_LOG_LEVEL", "info"),
			Format: envStr("FORGE_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("FORGE_CATALOG_PATH", "./catalog/catalog.yaml"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("FORGE_API_BASE_URL is required")
	}

	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		return fmt.Errorf("FORGE_SESSION_BACKEND must be 'memory' or 'redis', got %q", c.Session.Backend)
	}

	if c.Session.Backend == "redis" && c.Cache.URL == "" {
		return fmt.Errorf("FORGE_CACHE_URL is required when FORGE_SESSION_BACKEND is 'redis'")
	}

	if c.Generation.SubmissionTTL <= 0 {
		return fmt.Errorf("FORGE_SUBMISSION_TTL must be positive")
	}

	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
