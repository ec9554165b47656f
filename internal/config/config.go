// Package config loads the YAML application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/notewise/aibridge/internal/pricing"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no explicit path is given.
const DefaultConfigPath = "config.yaml"

// AppConfig holds process-level invocation options.
type AppConfig struct {
	ConfigPath string
}

// Config is the parsed application configuration.
type Config struct {
	Database DatabaseConfig          `yaml:"database"`
	Redis    RedisConfig             `yaml:"redis"`
	Logging  LoggingConfig           `yaml:"logging"`
	Server   ServerConfig            `yaml:"server"`
	Client   ClientConfig            `yaml:"client"`
	Provider ProviderConfig          `yaml:"provider"`
	Pricing  map[string]pricing.Rate `yaml:"pricing"`
}

// DatabaseConfig selects the persistence store.
type DatabaseConfig struct {
	// DSN is a PostgreSQL or SQLite connection string.
	DSN string `yaml:"dsn"`
}

// RedisConfig enables the optional aggregate-stats read cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig tunes log output and rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ClientConfig tunes the completion client's retry and budgeting behavior.
type ClientConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	BaseDelayMs       int     `yaml:"base_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	CeilingTokens     int     `yaml:"ceiling_tokens"`
}

// BaseDelay returns the configured base delay as a duration.
func (c ClientConfig) BaseDelay() time.Duration {
	if c.BaseDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// ProviderConfig points at the completion gateway.
type ProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// ResolveConfigPath returns the effective config file path.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return DefaultConfigPath
	}
	return trimmed
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(ResolveConfigPath(path))
	if errRead != nil {
		return nil, fmt.Errorf("config: read: %w", errRead)
	}

	var cfg Config
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse: %w", errUnmarshal)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8317"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
}
