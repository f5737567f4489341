package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("PARTNERSHIP_POSTGRES_DSN", "postgres://localhost/evcharge")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8083", cfg.HTTPAddress())
	assert.Equal(t, Limit{Max: 3, Window: 5 * time.Minute}, cfg.FormLimit)
	assert.Equal(t, Limit{Max: 100, Window: 15 * time.Minute}, cfg.ReadLimit)

	t.Setenv("FORM_LIMIT_MAX", "10")
	t.Setenv("READ_LIMIT_WINDOW", "1m")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.FormLimit.Max)
	assert.Equal(t, time.Minute, cfg.ReadLimit.Window)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("PARTNERSHIP_POSTGRES_DSN", "")
	_, err := Load()
	assert.EqualError(t, err, "config: database DSN is required")

	t.Setenv("PARTNERSHIP_POSTGRES_DSN", "postgres://localhost/evcharge")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("FORM_LIMIT_MAX", "0")
	_, err = Load()
	assert.EqualError(t, err, "config: rate limits must be positive")
}
