package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
)

const defaultExpiresMinutes = 7 * 24 * 60

// Config represents service configuration loaded from YAML/env.
type Config struct {
	Env     string `yaml:"env" env:"APP_ENV"`
	Version string `yaml:"version" env:"APP_VERSION"`
	HTTP    struct {
		Port string `yaml:"port" env:"AUTH_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"AUTH_POSTGRES_DSN"`
	} `yaml:"database"`
	JWT struct {
		Secret           string `yaml:"secret" env:"JWT_SECRET"`
		ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"JWT_EXPIRES_MINUTES"`
	} `yaml:"jwt"`
	BcryptCost int `yaml:"bcryptCost" env:"BCRYPT_COST"`
}

func defaults() *Config {
	cfg := &Config{Env: "development", Version: "1.0.0"}
	cfg.HTTP.Port = "8081"
	cfg.JWT.ExpiresInMinutes = defaultExpiresMinutes
	return cfg
}

// Load reads the server configuration and validates required fields.
func Load() (*Config, error) {
	cfg, err := LoadCLI()
	if err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("config: jwt secret is required")
	}
	return cfg, nil
}

// LoadCLI reads configuration for the admin tooling, which only needs the database.
func LoadCLI() (*Config, error) {
	cfg := defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if cfg.JWT.ExpiresInMinutes <= 0 {
		cfg.JWT.ExpiresInMinutes = defaultExpiresMinutes
	}
	return cfg, nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8081"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// JWTExpiration converts configured expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}

// Debug reports whether error details may be returned to clients.
func (c *Config) Debug() bool {
	return c.Env == "development"
}
