// Package config loads service settings from the environment.
//
// main loads an optional .env file first; every key can then be
// overridden by a real environment variable.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIKey   string
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	NATS     NATSConfig
}

type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

type LogConfig struct {
	Debug       bool
	Level       string
	Format      string
	Dir         string // empty disables per-level files
	MaxFileSize int64  // bytes
	BackupCount int
}

type NATSConfig struct {
	Enabled bool
	Port    int
	DataDir string
}

// EffectiveLevel resolves the effective log level: LOG_LEVEL wins, otherwise
// DEBUG selects debug over info.
func (c LogConfig) EffectiveLevel() string {
	if c.Level != "" {
		return c.Level
	}
	if c.Debug {
		return "debug"
	}
	return "info"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT_SECONDS", 10)
	v.SetDefault("SERVER_WRITE_TIMEOUT_SECONDS", 10)
	v.SetDefault("SERVER_IDLE_TIMEOUT_SECONDS", 120)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_PATH", "./db/directory.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 3600)
	v.SetDefault("DB_BUSY_TIMEOUT_MS", 30000)

	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_FILES_ENABLED", true)
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("LOG_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("LOG_BACKUP_COUNT", 5)

	v.SetDefault("NATS_ENABLED", true)
	v.SetDefault("NATS_PORT", 4222)
	v.SetDefault("NATS_DATA_DIR", "./data/nats")
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIKey: v.GetString("API_KEY"),
		Server: ServerConfig{
			Port:               v.GetString("PORT"),
			ReadTimeout:        time.Duration(v.GetInt("SERVER_READ_TIMEOUT_SECONDS")) * time.Second,
			WriteTimeout:       time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT_SECONDS")) * time.Second,
			IdleTimeout:        time.Duration(v.GetInt("SERVER_IDLE_TIMEOUT_SECONDS")) * time.Second,
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Path:            v.GetString("DB_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")) * time.Second,
			BusyTimeout:     time.Duration(v.GetInt("DB_BUSY_TIMEOUT_MS")) * time.Millisecond,
		},
		Log: LogConfig{
			Debug:       v.GetBool("DEBUG"),
			Level:       v.GetString("LOG_LEVEL"),
			Format:      v.GetString("LOG_FORMAT"),
			Dir:         logDir(v),
			MaxFileSize: v.GetInt64("LOG_MAX_FILE_SIZE"),
			BackupCount: v.GetInt("LOG_BACKUP_COUNT"),
		},
		NATS: NATSConfig{
			Enabled: v.GetBool("NATS_ENABLED"),
			Port:    v.GetInt("NATS_PORT"),
			DataDir: v.GetString("NATS_DATA_DIR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns)
	}
	if c.Log.BackupCount < 0 {
		return fmt.Errorf("LOG_BACKUP_COUNT must not be negative, got %d", c.Log.BackupCount)
	}
	return nil
}

// logDir returns LOG_DIR, or "" when LOG_FILES_ENABLED is false.
func logDir(v *viper.Viper) string {
	if !v.GetBool("LOG_FILES_ENABLED") {
		return ""
	}
	return v.GetString("LOG_DIR")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
