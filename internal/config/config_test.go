package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TICKET_API_URL", "http://tickets.local/api/v1/")
	t.Setenv("AUTH_DEV_USERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://tickets.local/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, 15*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, "0.0.0.0:8000", cfg.App.Addr())
	assert.Len(t, cfg.Auth.DevUsers, 2)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL_MS", "1500")
	t.Setenv("REDIS_STATS_TTL", "2m")
	t.Setenv("TICKET_API_TIMEOUT", "not-a-duration")
	t.Setenv("AUTH_DEV_USERS", "ops:secret:admin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Cache.DefaultTTL)
	assert.Equal(t, 2*time.Minute, cfg.Redis.StatsTTL)
	assert.Equal(t, 15*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, []DevUser{{Username: "ops", Password: "secret", Role: "admin"}}, cfg.Auth.DevUsers)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("REDIS_DB", "0")
	t.Setenv("AUTH_DEV_USERS", "missing-fields")
	_, err = Load()
	require.Error(t, err)
}
