package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	libconfig "evcharge/backend/libs/config"
	"evcharge/backend/libs/middleware"
)

// Config defines gateway configuration.
type Config struct {
	Env     string `yaml:"env" env:"APP_ENV"`
	Version string `yaml:"version" env:"APP_VERSION"`
	HTTP    struct {
		Port string `yaml:"port" env:"API_GATEWAY_HTTP_PORT"`
	} `yaml:"http"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`
	Services struct {
		AuthURL        string `yaml:"authUrl" env:"AUTH_SERVICE_URL"`
		BookingURL     string `yaml:"bookingUrl" env:"BOOKING_SERVICE_URL"`
		PartnershipURL string `yaml:"partnershipUrl" env:"PARTNERSHIP_SERVICE_URL"`
	} `yaml:"services"`
	ClientURLs []string `yaml:"clientUrls" env:"CLIENT_URL"`
	Proxy      struct {
		Timeout time.Duration `yaml:"timeout" env:"API_GATEWAY_PROXY_TIMEOUT"`
		// Trusted lists the load balancers (IPs or CIDRs) whose X-Forwarded-For is believed.
		Trusted []string `yaml:"trusted" env:"TRUSTED_PROXIES"`
	} `yaml:"proxy"`
	// Zero values fall back to 100 per 15m in production and 1000 otherwise.
	RateLimit struct {
		Max    int           `yaml:"max" env:"RATE_LIMIT_MAX"`
		Window time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	} `yaml:"rateLimit"`

	trusted []*net.IPNet
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{Env: "development", Version: "1.0.0"}
	cfg.HTTP.Port = "8080"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Services.AuthURL = "http://localhost:8081"
	cfg.Services.BookingURL = "http://localhost:8082"
	cfg.Services.PartnershipURL = "http://localhost:8083"
	cfg.Proxy.Timeout = 30 * time.Second

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = 15 * time.Minute
	}
	if cfg.RateLimit.Max <= 0 {
		cfg.RateLimit.Max = 1000
		if cfg.Production() {
			cfg.RateLimit.Max = 100
		}
	}

	for name, raw := range map[string]string{
		"auth":        cfg.Services.AuthURL,
		"booking":     cfg.Services.BookingURL,
		"partnership": cfg.Services.PartnershipURL,
	} {
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("config: %s service url is required", name)
		}
	}
	if cfg.Production() && len(cfg.ClientURLs) == 0 {
		return nil, errors.New("config: CLIENT_URL is required in production")
	}
	trusted, err := middleware.ParseTrustedProxies(cfg.Proxy.Trusted)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.trusted = trusted
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// TrustedProxies returns the parsed Proxy.Trusted ranges.
func (c *Config) TrustedProxies() []*net.IPNet {
	return c.trusted
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// AllowedOrigins is the CORS allow list: CLIENT_URL in production, local dev servers otherwise.
func (c *Config) AllowedOrigins() []string {
	if c.Production() {
		return c.ClientURLs
	}
	return middleware.DevOrigins()
}
