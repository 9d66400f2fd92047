// Package config loads pawlog configuration from a YAML file, .env files and
// PAWLOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
// storage.postgres_dsn is read from PAWLOG_STORAGE_POSTGRES_DSN.
const EnvPrefix = "PAWLOG"

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Stats   StatsConfig   `mapstructure:"stats"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AuthToken       string        `mapstructure:"auth_token"` // empty accepts any bearer token
}

// StorageConfig selects and configures the event store backend.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
	MaxConns      int32  `mapstructure:"max_conns"`
	Migrate       bool   `mapstructure:"migrate"`
}

// CacheConfig holds the Redis summary cache configuration.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// QueueConfig holds the Kafka ingestion configuration.
type QueueConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Group   string   `mapstructure:"group"`
}

// StatsConfig holds statistics settings.
type StatsConfig struct {
	// Timezone is the IANA zone used for timestamps submitted without an offset.
	Timezone string `mapstructure:"timezone"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.auth_token", "")

	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.sqlite_path", "./data/pawlog.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.max_conns", 10)
	v.SetDefault("storage.migrate", true)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.brokers", []string{"localhost:9092"})
	v.SetDefault("queue.topic", "pawlog.events")
	v.SetDefault("queue.group", "pawlog")

	v.SetDefault("stats.timezone", "UTC")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.read_timeout and server.write_timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	case BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for the clickhouse backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: memory, sqlite, postgres, clickhouse")
	}
	if c.Storage.MaxConns < 1 {
		return fmt.Errorf("storage.max_conns must be at least 1")
	}

	if c.Cache.Enabled {
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required when cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive")
		}
	}

	if c.Queue.Enabled {
		if len(c.Queue.Brokers) == 0 {
			return fmt.Errorf("queue.brokers must contain at least one broker when queue is enabled")
		}
		if c.Queue.Topic == "" {
			return fmt.Errorf("queue.topic is required when queue is enabled")
		}
	}

	if _, err := c.Stats.Location(); err != nil {
		return fmt.Errorf("stats.timezone: %w", err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Location resolves Timezone. An empty Timezone means UTC.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}
