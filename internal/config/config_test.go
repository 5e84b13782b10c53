package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roidash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://wallet.example.com/api
  page_size: 25
poll:
  interval: 2m
display:
  timezone: Africa/Lagos
redis:
  enabled: true
`), 0o644))

	t.Setenv("ROIDASH_API_TOKEN", "secret")
	t.Setenv("ROIDASH_DEDUP_ABSOLUTE_TOLERANCE", "2.5")
	t.Setenv("ROIDASH_POLL_INTERVAL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://wallet.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 25, cfg.API.PageSize)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, 2.5, cfg.Dedup.AbsoluteTolerance)
	assert.Equal(t, 0.01, cfg.Dedup.RelativeTolerance)
	assert.Equal(t, 90*time.Second, cfg.Poll.Interval)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	loc, err := cfg.Display.Location()
	require.NoError(t, err)
	assert.Equal(t, "Africa/Lagos", loc.String())
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{
			name:    "Missing base URL",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			message: "api.base_url is required",
		},
		{
			name:    "Zero poll interval",
			mutate:  func(c *Config) { c.Poll.Interval = 0 },
			message: "poll.interval must be positive",
		},
		{
			name:    "Relative tolerance out of range",
			mutate:  func(c *Config) { c.Dedup.RelativeTolerance = 1.5 },
			message: "dedup.relative_tolerance",
		},
		{
			name:    "Unknown timezone",
			mutate:  func(c *Config) { c.Display.Timezone = "Mars/Olympus" },
			message: "display.timezone",
		},
		{
			name: "MinIO without bucket",
			mutate: func(c *Config) {
				c.MinIO.Enabled = true
				c.MinIO.Bucket = ""
			},
			message: "minio.bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
