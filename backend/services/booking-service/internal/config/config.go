package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
)

// Config defines booking service configuration.
type Config struct {
	Env     string `yaml:"env" env:"APP_ENV"`
	Version string `yaml:"version" env:"APP_VERSION"`
	HTTP    struct {
		Port string `yaml:"port" env:"BOOKING_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"BOOKING_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
	} `yaml:"jwt"`
	Stripe struct {
		SecretKey string        `yaml:"secretKey" env:"STRIPE_SECRET_KEY"`
		BaseURL   string        `yaml:"baseUrl" env:"STRIPE_BASE_URL"`
		Timeout   time.Duration `yaml:"timeout" env:"STRIPE_TIMEOUT"`
	} `yaml:"stripe"`
	ClientURLs []string `yaml:"clientUrls" env:"CLIENT_URL"`
	Booking    struct {
		Timezone     string        `yaml:"timezone" env:"BOOKING_TIMEZONE"`
		Currency     string        `yaml:"currency" env:"BOOKING_CURRENCY"`
		CheckoutTTL  time.Duration `yaml:"checkoutTtl" env:"CHECKOUT_TTL"`
		PendingGrace time.Duration `yaml:"pendingGrace" env:"PENDING_GRACE"`
		StartHour    int           `yaml:"startHour" env:"SLOT_START_HOUR"`
		EndHour      int           `yaml:"endHour" env:"SLOT_END_HOUR"`
		StepMinutes  int           `yaml:"stepMinutes" env:"SLOT_STEP_MINUTES"`
	} `yaml:"booking"`
	Cache struct {
		TTL time.Duration `yaml:"ttl" env:"AVAILABILITY_CACHE_TTL"`
	} `yaml:"cache"`
	Janitor struct {
		Interval time.Duration `yaml:"interval" env:"JANITOR_INTERVAL"`
		Timeout  time.Duration `yaml:"timeout" env:"JANITOR_TIMEOUT"`
	} `yaml:"janitor"`
	WebSocket struct {
		WriteTimeout time.Duration `yaml:"writeTimeout" env:"WS_WRITE_TIMEOUT"`
	} `yaml:"websocket"`

	location *time.Location
}

// Load reads configuration using the shared config loader and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{Env: "development", Version: "1.0.0"}
	cfg.HTTP.Port = "8082"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Stripe.Timeout = 15 * time.Second
	cfg.ClientURLs = []string{"http://localhost:5173"}
	cfg.Booking.Timezone = "UTC"
	cfg.Booking.Currency = "inr"
	cfg.Booking.CheckoutTTL = 30 * time.Minute
	cfg.Booking.PendingGrace = 5 * time.Minute
	cfg.Booking.StartHour = 6
	cfg.Booking.EndHour = 22
	cfg.Booking.StepMinutes = 30
	cfg.Cache.TTL = time.Minute
	cfg.Janitor.Interval = 5 * time.Minute
	cfg.Janitor.Timeout = time.Minute
	cfg.WebSocket.WriteTimeout = 10 * time.Second

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("config: jwt secret is required")
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("config: stripe secret key is required")
	}
	if cfg.Booking.CheckoutTTL < 30*time.Minute {
		return nil, errors.New("config: checkout ttl must be at least 30m")
	}

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: booking timezone: %w", err)
	}
	cfg.location = loc

	return cfg, nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8082"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location is the zone booking dates and slots are expressed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ClientURL is the base for checkout redirects.
func (c *Config) ClientURL() string {
	if len(c.ClientURLs) == 0 {
		return "http://localhost:5173"
	}
	return c.ClientURLs[0]
}

// Debug reports whether error details may be returned to clients.
func (c *Config) Debug() bool {
	return c.Env == "development"
}
