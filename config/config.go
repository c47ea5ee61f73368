package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Merchant  MerchantConfig
	Registry  RegistryConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MerchantConfig holds outbound merchant fetch configuration
type MerchantConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	UserAgent           string        `mapstructure:"user_agent"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
}

// RegistryConfig holds endpoint registry configuration
type RegistryConfig struct {
	Type         string `mapstructure:"type"` // "sqlite" or "memory"
	SQLitePath   string `mapstructure:"sqlite_path"`
	SeedDefaults bool   `mapstructure:"seed_defaults"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricecompare/")

	// PRICECOMPARE_SERVER_PORT etc.; defaults register every key so AutomaticEnv sees them
	v.SetEnvPrefix("PRICECOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env if present; variables already set win
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3010", "http://127.0.0.1:3010"})

	// Merchant defaults
	v.SetDefault("merchant.timeout", "10s")
	v.SetDefault("merchant.user_agent", "PriceCompare/1.0")
	v.SetDefault("merchant.max_idle_conns_per_host", 10)

	// Registry defaults
	v.SetDefault("registry.type", "sqlite")
	v.SetDefault("registry.sqlite_path", "api_endpoints.db")
	v.SetDefault("registry.seed_defaults", true)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required (set PRICECOMPARE_SERVER_PORT)")
	}

	if config.Merchant.Timeout <= 0 {
		return fmt.Errorf("merchant timeout must be positive, got: %s", config.Merchant.Timeout)
	}

	if config.Registry.Type != "sqlite" && config.Registry.Type != "memory" {
		return fmt.Errorf("registry type must be 'sqlite' or 'memory', got: %s", config.Registry.Type)
	}

	if config.Registry.Type == "sqlite" && config.Registry.SQLitePath == "" {
		return fmt.Errorf("SQLite path is required when registry type is 'sqlite'")
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("rate limit per IP cannot be negative, got: %d", config.RateLimit.PerIP)
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	return nil
}
