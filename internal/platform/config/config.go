// Package config loads application configuration from environment variables.
// All variables use the FORGE_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Starter  StarterConfig
	User     UserConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL means
// the remote store is not configured and the local backend is used.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// listing cache.
type CacheConfig struct {
	URL string
}

// StorageConfig holds local fallback storage settings.
type StorageConfig struct {
	Dir string
}

// StarterConfig holds starter content settings. An empty path disables
// seeding.
type StarterConfig struct {
	Path string
}

// UserConfig identifies the current user; session handling lives outside
// this service.
type UserConfig struct {
	ID   string
	Name string
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
			URL:      envStr("FORGE_DATABASE_URL", ""),
			MaxConns: envInt("FORGE_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("FORGE_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("FORGE_CACHE_URL", ""),
		},
		Storage: StorageConfig{
			Dir: envStr("FORGE_STORAGE_DIR", "./data"),
		},
		Starter: StarterConfig{
			Path: envStr("FORGE_STARTER_PATH", ""),
		},
		User: UserConfig{
			ID:   envStr("FORGE_USER_ID", ""),
			Name: envStr("FORGE_USER_NAME", ""),
		},
		Log: LogConfig{
			Level:  envStr("FORGE_LOG_LEVEL", "info"),
			Format: envStr("FORGE_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("FORGE_SERVER_PORT must be a valid port, got %d", c.Server.Port)
	}
	if c.RemoteEnabled() && c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("FORGE_DATABASE_MAX_CONNS must be >= FORGE_DATABASE_MIN_CONNS")
	}
	if !c.RemoteEnabled() && c.Storage.Dir == "" {
		return fmt.Errorf("FORGE_STORAGE_DIR is required in local mode")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("FORGE_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

// RemoteEnabled reports whether the remote document store is configured.
// The decision is made once here; components receive the chosen backend
// and never branch on configuration themselves.
func (c *Config) RemoteEnabled() bool {
	return c.Database.URL != ""
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
