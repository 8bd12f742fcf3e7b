package agentd

import (
	"errors"
	"strings"
	"time"
)

// Config controls how the agentd runtime reaches the agent daemon.
type Config struct {
	// Endpoint is the daemon's WebSocket URL.
	Endpoint string

	// ConnectTimeout bounds the initial dial and launch handshake.
	ConnectTimeout time.Duration

	// RequiredCredentials lists environment variables that must be set
	// before an actuator can be launched. Missing credentials fail the
	// launch before any process or connection is created.
	RequiredCredentials []string
}

// DefaultConfig returns the recommended daemon defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:            "ws://localhost:8765/agent",
		ConnectTimeout:      60 * time.Second,
		RequiredCredentials: []string{"GEMINI_API_KEY", "OPENROUTER_API_KEY"},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.Endpoint) == "" {
		c.Endpoint = def.Endpoint
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.RequiredCredentials == nil {
		c.RequiredCredentials = def.RequiredCredentials
	}
	return c
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.Endpoint, "ws://") && !strings.HasPrefix(c.Endpoint, "wss://") {
		return errors.New("agentd endpoint must be a ws:// or wss:// URL")
	}
	return nil
}
