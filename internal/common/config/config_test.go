package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.NodeName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1.0, cfg.MinimumWaitTime)
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 120, cfg.API.RateLimitPerMinute)
	assert.Equal(t, "@every 1m", cfg.Housekeeping.Schedule)
}

func TestLoadReadsYAMLFileAndKeepsExplicitValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poetd.yaml")
	contents := []byte(`
nodeName: validator-1
logLevel: debug
api:
  port: 9090
`)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "validator-1", cfg.NodeName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.API.Port)
	// untouched fields still get defaulted
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poetd.yaml")

	original := &Config{
		NodeName:        "validator-2",
		LogLevel:        "warn",
		MinimumWaitTime: 2.5,
		API: APIConfig{
			Host:               "127.0.0.1",
			Port:               8081,
			EnableCORS:         true,
			AllowedOrigins:     []string{"https://example.test"},
			JWTSecret:          "s3cr3t",
			RateLimitPerMinute: 60,
		},
		Housekeeping: Housekeeping{Enabled: true, Schedule: "@every 30s"},
	}
	require.NoError(t, Save(original, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadHonorsEnvironmentOverride(t *testing.T) {
	t.Setenv("POET_NODENAME", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.NodeName)
}
