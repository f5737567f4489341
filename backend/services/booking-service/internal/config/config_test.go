package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("BOOKING_POSTGRES_DSN", "postgres://localhost/evcharge")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8082", cfg.HTTPAddress())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "http://localhost:5173", cfg.ClientURL())
	assert.Equal(t, 30*time.Minute, cfg.Booking.CheckoutTTL)
	assert.Equal(t, "inr", cfg.Booking.Currency)
	assert.True(t, cfg.Debug())
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("CLIENT_URL", "https://evcharge.example, https://admin.evcharge.example")
	t.Setenv("BOOKING_TIMEZONE", "Asia/Kolkata")
	t.Setenv("CHECKOUT_TTL", "45m")
	t.Setenv("JANITOR_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Debug())
	assert.Equal(t, "https://evcharge.example", cfg.ClientURL())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, 45*time.Minute, cfg.Booking.CheckoutTTL)
	assert.Equal(t, time.Minute, cfg.Janitor.Interval)
}

func TestLoadFromFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "booking.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: \"9000\"\nbooking:\n  currency: usd\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.Equal(t, "usd", cfg.Booking.Currency)
	assert.Equal(t, 22, cfg.Booking.EndHour)
}

func TestLoadValidation(t *testing.T) {
	setRequired(t)
	t.Setenv("STRIPE_SECRET_KEY", "")
	_, err := Load()
	assert.EqualError(t, err, "config: stripe secret key is required")

	setRequired(t)
	t.Setenv("CHECKOUT_TTL", "10m")
	_, err = Load()
	assert.EqualError(t, err, "config: checkout ttl must be at least 30m")

	t.Setenv("CHECKOUT_TTL", "30m")
	t.Setenv("BOOKING_TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.ErrorContains(t, err, "config: booking timezone")
}
