package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, BusModeMemory, cfg.Bus.Mode)
	assert.Equal(t, "ws://localhost:8765/agent", cfg.Actuator.AgentdEndpoint)
	assert.Equal(t, 10*time.Minute, cfg.Task.MaxDuration)
	assert.Equal(t, 50, cfg.Task.DefaultMaxSteps)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Address)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9100"
bus:
  mode: nats
  url: nats://broker:4222
task:
  max_duration: 5m
  default_max_steps: 25
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Address)
	assert.Equal(t, BusModeNATS, cfg.Bus.Mode)
	assert.Equal(t, "nats://broker:4222", cfg.Bus.URL)
	assert.Equal(t, 5*time.Minute, cfg.Task.MaxDuration)
	assert.Equal(t, 25, cfg.Task.DefaultMaxSteps)

	// Sections the file omits keep their defaults.
	assert.Equal(t, "ws://localhost:8765/agent", cfg.Actuator.AgentdEndpoint)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9100\"\n"), 0644))

	t.Setenv("MANUS_LISTEN_ADDR", ":9200")
	t.Setenv("MANUS_REQUIRED_CREDENTIALS", "KEY_A,KEY_B")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.Server.Address)
	assert.Equal(t, []string{"KEY_A", "KEY_B"}, cfg.Actuator.RequiredCredentials)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"bad bus mode", func(c *Config) { c.Bus.Mode = "kafka" }},
		{"nats without url", func(c *Config) { c.Bus.Mode = BusModeNATS; c.Bus.URL = "" }},
		{"zero duration", func(c *Config) { c.Task.MaxDuration = 0 }},
		{"zero steps", func(c *Config) { c.Task.DefaultMaxSteps = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
