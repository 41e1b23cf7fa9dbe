package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type InstrumentationConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RetentionDays   int     `mapstructure:"retention_days"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	BufferSize      int     `mapstructure:"buffer_size"`
	FlushIntervalMs int     `mapstructure:"flush_interval_ms"`
}

type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Engine          EngineConfig          `mapstructure:"engine"`
	AI              AIConfig              `mapstructure:"ai"`
	Auth            AuthConfig            `mapstructure:"auth"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation"`
	Schema          SchemaConfig          `mapstructure:"schema"`
	Webhooks        []WebhookConfig       `mapstructure:"webhooks"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // memory, sqlite, postgres
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for the SQLite database file
}

type EngineConfig struct {
	HealSections  bool `mapstructure:"heal_sections"`
	MaxOperations int  `mapstructure:"max_operations"`
}

type AIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// Configured reports whether enough is set to call a planner.
func (a AIConfig) Configured() bool {
	return a.BaseURL != "" && a.APIKey != "" && a.Model != ""
}

type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
	TokenTTLMinutes   int    `mapstructure:"token_ttl_minutes"`
}

// Enabled reports whether admin routes require a token.
func (a AuthConfig) Enabled() bool {
	return a.AdminPasswordHash != ""
}

// WebhookConfig is one endpoint notified after every installed revision.
// Header values may reference {{env.NAME}}. Condition is an expr-lang
// expression over the payload fields; empty means always.
type WebhookConfig struct {
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Condition   string            `mapstructure:"condition"`
	MaxAttempts int               `mapstructure:"max_attempts"`
	BackoffMs   int               `mapstructure:"backoff_ms"`
}

type SchemaConfig struct {
	SeedPath string `mapstructure:"seed_path"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return filepath.Join(d.Path, d.Name+".db")
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsMemory returns true when no database is configured.
func (d DatabaseConfig) IsMemory() bool {
	return d.Driver == "" || d.Driver == "memory"
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "memory")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "corisa")
	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("database.path", "./data")
	viper.SetDefault("engine.heal_sections", true)
	viper.SetDefault("engine.max_operations", 500)
	viper.SetDefault("ai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.temperature", 0.2)
	viper.SetDefault("auth.jwt_secret", "changeme-secret")
	viper.SetDefault("auth.token_ttl_minutes", 15)
	viper.SetDefault("instrumentation.enabled", true)
	viper.SetDefault("instrumentation.retention_days", 7)
	viper.SetDefault("instrumentation.sampling_rate", 1.0)
	viper.SetDefault("instrumentation.buffer_size", 500)
	viper.SetDefault("instrumentation.flush_interval_ms", 100)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
