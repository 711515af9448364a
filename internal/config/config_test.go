package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.CriticalTaskThreshold)
	assert.InDelta(t, 0.7, cfg.UtilizationThreshold, 1e-9)
	assert.Equal(t, 256, cfg.PlanCacheSize)
	assert.False(t, cfg.SlackEnabled())
	assert.False(t, cfg.AuthEnabled())
	assert.True(t, cfg.Development())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PLANDECK_ENVIRONMENT", "production")
	t.Setenv("PLANDECK_API_KEY", "sekrit")
	t.Setenv("PLANDECK_CRITICAL_TASK_THRESHOLD", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, 5, cfg.CriticalTaskThreshold)
	assert.False(t, cfg.Development())
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plandeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"critical_task_threshold: 2\nutilization_threshold: 0.5\nslack_channel: '#planning'\n"), 0o600))
	t.Setenv("PLANDECK_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.CriticalTaskThreshold)
	assert.InDelta(t, 0.5, cfg.UtilizationThreshold, 1e-9)
	assert.Equal(t, "#planning", cfg.SlackChannel)
}

func TestLoad_InvalidThresholds(t *testing.T) {
	t.Setenv("PLANDECK_UTILIZATION_THRESHOLD", "1.5")
	_, err := Load()
	assert.Error(t, err)
}

func TestSlackEnabled_NeedsTokenAndChannel(t *testing.T) {
	cfg := &Config{SlackBotToken: "xoxb-test"}
	assert.False(t, cfg.SlackEnabled())
	cfg.SlackChannel = "#planning"
	assert.True(t, cfg.SlackEnabled())
}
