package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, BackendRedis, cfg.RegistryBackend)
	assert.Equal(t, time.Hour, cfg.Pipeline.CacheTTL)
	assert.Equal(t, 2, cfg.Pipeline.KnowledgeDepth)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.StageTimeout)
	assert.Equal(t, "education-videos", cfg.Storage.Bucket)
	assert.Equal(t, time.Duration(0), cfg.Redis.TaskRetention)
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("EDUVID_HTTP_PORT", "9000")
	t.Setenv("REGISTRY_BACKEND", "memory")
	t.Setenv("CACHE_BACKEND", "none")
	t.Setenv("PIPELINE_CACHE_TTL", "10m")
	t.Setenv("WORKER_POOL_SIZE", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.GetHTTPAddr())
	assert.Equal(t, BackendMemory, cfg.RegistryBackend)
	assert.Equal(t, BackendNone, cfg.CacheBackend)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.CacheTTL)
	assert.Equal(t, 2, cfg.Workers.PoolSize)
}

func TestValidate(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")

	base := func(t *testing.T) *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"bad port", func(c *Config) { c.HTTPPort = 0 }},
		{"bad registry backend", func(c *Config) { c.RegistryBackend = "etcd" }},
		{"bad cache backend", func(c *Config) { c.CacheBackend = "memcached" }},
		{"empty pool", func(c *Config) { c.Workers.PoolSize = 0 }},
		{"empty bucket", func(c *Config) { c.Storage.Bucket = "" }},
		{"zero stage timeout", func(c *Config) { c.Pipeline.StageTimeout = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
