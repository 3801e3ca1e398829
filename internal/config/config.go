package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Logging   LoggingConfig
	Scan      ScanConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Server    ServerConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string // postgres, sqlite
	Host       string
	Port       string
	Username   string
	Password   string
	Database   string
	SQLitePath string
	LogLevel   string // silent, error, warn, info
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// ScanConfig holds tuning for the scan capture core
type ScanConfig struct {
	ConflictWindow     time.Duration
	MaxReadings        int
	MaxOfflineSessions int
	RecentSessions     int
	AuditBuffer        int
}

// CacheConfig selects the tenant snapshot cache
type CacheConfig struct {
	Backend string // none, memory, redis
	TTL     time.Duration
	Size    int
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("NODE_ENV", "development")
	v.SetDefault("PORT", "3210")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("PG_HOST", "localhost")
	v.SetDefault("PG_PORT", "5432")
	v.SetDefault("PG_USERNAME", "postgres")
	v.SetDefault("PG_PASSWORD", "")
	v.SetDefault("PG_DATABASE", "ecklinen")
	v.SetDefault("SQLITE_PATH", "ecklinen.db")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SCAN_CONFLICT_WINDOW", "1h")
	v.SetDefault("SCAN_MAX_READINGS", 5000)
	v.SetDefault("SCAN_MAX_OFFLINE_SESSIONS", 200)
	v.SetDefault("SCAN_RECENT_SESSIONS", 10)
	v.SetDefault("AUDIT_BUFFER", 1024)
	v.SetDefault("SNAPSHOT_CACHE", "memory")
	v.SetDefault("SNAPSHOT_CACHE_TTL", "30s")
	v.SetDefault("SNAPSHOT_CACHE_SIZE", 256)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("READ_TIMEOUT", "30s")
	v.SetDefault("WRITE_TIMEOUT", "60s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// Load loads configuration from .env, the environment, and an optional
// config file. JWT_SECRET is only required by the HTTP server, see Validate.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		NodeEnv:   v.GetString("NODE_ENV"),
		Port:      v.GetString("PORT"),
		JWTSecret: v.GetString("JWT_SECRET"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			Host:       v.GetString("PG_HOST"),
			Port:       v.GetString("PG_PORT"),
			Username:   v.GetString("PG_USERNAME"),
			Password:   v.GetString("PG_PASSWORD"),
			Database:   v.GetString("PG_DATABASE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
			LogLevel:   strings.ToLower(v.GetString("DB_LOG_LEVEL")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		Scan: ScanConfig{
			ConflictWindow:     v.GetDuration("SCAN_CONFLICT_WINDOW"),
			MaxReadings:        v.GetInt("SCAN_MAX_READINGS"),
			MaxOfflineSessions: v.GetInt("SCAN_MAX_OFFLINE_SESSIONS"),
			RecentSessions:     v.GetInt("SCAN_RECENT_SESSIONS"),
			AuditBuffer:        v.GetInt("AUDIT_BUFFER"),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(v.GetString("SNAPSHOT_CACHE")),
			TTL:     v.GetDuration("SNAPSHOT_CACHE_TTL"),
			Size:    v.GetInt("SNAPSHOT_CACHE_SIZE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Server: ServerConfig{
			ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported SNAPSHOT_CACHE %q", c.Cache.Backend)
	}
	if c.Scan.ConflictWindow <= 0 {
		return fmt.Errorf("SCAN_CONFLICT_WINDOW must be positive")
	}
	if c.Scan.MaxReadings <= 0 || c.Scan.MaxOfflineSessions <= 0 {
		return fmt.Errorf("scan batch limits must be positive")
	}
	return nil
}

// Validate checks settings required to serve HTTP traffic
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
