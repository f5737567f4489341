package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
)

// Limit is a fixed-window request budget.
type Limit struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// Config defines partnership service configuration.
type Config struct {
	Env     string `yaml:"env" env:"APP_ENV"`
	Version string `yaml:"version" env:"APP_VERSION"`
	HTTP    struct {
		Port string `yaml:"port" env:"PARTNERSHIP_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"PARTNERSHIP_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
	} `yaml:"jwt"`
	// Overridden by FORM_LIMIT_MAX, FORM_LIMIT_WINDOW, READ_LIMIT_MAX and READ_LIMIT_WINDOW.
	FormLimit Limit `yaml:"formLimit" env:"FORM_LIMIT"`
	ReadLimit Limit `yaml:"readLimit" env:"READ_LIMIT"`
}

// Load reads configuration using the shared config loader and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{Env: "development", Version: "1.0.0"}
	cfg.HTTP.Port = "8083"
	cfg.Redis.Addr = "localhost:6379"
	cfg.FormLimit = Limit{Max: 3, Window: 5 * time.Minute}
	cfg.ReadLimit = Limit{Max: 100, Window: 15 * time.Minute}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("config: jwt secret is required")
	}
	if cfg.FormLimit.Max <= 0 || cfg.ReadLimit.Max <= 0 {
		return nil, errors.New("config: rate limits must be positive")
	}
	return cfg, nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8083"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Debug reports whether error details may be returned to clients.
func (c *Config) Debug() bool {
	return c.Env == "development"
}
