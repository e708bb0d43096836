package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := loadDefaults(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "5001", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Upstream.MaxAttempts)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL())
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, "upstream", cfg.Identity.DisplayNameSource)
}

func TestValidateRejectsRedisBackendWithoutAddr(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Cache.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = loadDefaults(t)
	cfg.Identity.DisplayNameSource = "jwt"
	assert.Error(t, cfg.Validate())

	cfg = loadDefaults(t)
	cfg.Upstream.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestUpstreamBaseNormalizesSlash(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Upstream.BaseURL = "http://backend:8000"
	assert.Equal(t, "http://backend:8000/", cfg.UpstreamBase())

	cfg.Upstream.BaseURL = "http://backend:8000//"
	assert.Equal(t, "http://backend:8000/", cfg.UpstreamBase())
}
