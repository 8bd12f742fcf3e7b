// Package config loads the daemon configuration from an optional YAML file
// with environment-variable overrides on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Bus modes.
const (
	BusModeMemory = "memory"
	BusModeNATS   = "nats"
)

// Config is the root daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Bus      BusConfig      `yaml:"bus"`
	Actuator ActuatorConfig `yaml:"actuator"`
	Task     TaskConfig     `yaml:"task"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address string `yaml:"address" env:"MANUS_LISTEN_ADDR"`
}

// BusConfig selects the event bus backend.
type BusConfig struct {
	Mode string `yaml:"mode" env:"MANUS_BUS_MODE"`
	URL  string `yaml:"url" env:"MANUS_NATS_URL"`
}

// ActuatorConfig controls the agent daemon connection and Chrome launching.
type ActuatorConfig struct {
	AgentdEndpoint      string        `yaml:"agentd_endpoint" env:"MANUS_AGENTD_ENDPOINT"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" env:"MANUS_AGENTD_CONNECT_TIMEOUT"`
	RequiredCredentials []string      `yaml:"required_credentials" env:"MANUS_REQUIRED_CREDENTIALS" envSeparator:","`
	ChromePath          string        `yaml:"chrome_path" env:"MANUS_CHROME_PATH"`
	Headless            bool          `yaml:"headless" env:"MANUS_HEADLESS"`
}

// TaskConfig bounds task execution.
type TaskConfig struct {
	// MaxDuration is the wall-clock ceiling per run. Time spent waiting for
	// human input does not count against it.
	MaxDuration time.Duration `yaml:"max_duration" env:"MANUS_TASK_MAX_DURATION"`

	// DefaultMaxSteps is used when a run request does not set max steps.
	DefaultMaxSteps int `yaml:"default_max_steps" env:"MANUS_TASK_DEFAULT_MAX_STEPS"`
}

// LogConfig controls the structured log destination.
type LogConfig struct {
	Dir   string `yaml:"dir" env:"MANUS_LOG_DIR"`
	Level string `yaml:"level" env:"MANUS_LOG_LEVEL"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8000",
		},
		Bus: BusConfig{
			Mode: BusModeMemory,
			URL:  "nats://localhost:4222",
		},
		Actuator: ActuatorConfig{
			AgentdEndpoint:      "ws://localhost:8765/agent",
			ConnectTimeout:      60 * time.Second,
			RequiredCredentials: []string{"GEMINI_API_KEY", "OPENROUTER_API_KEY"},
		},
		Task: TaskConfig{
			MaxDuration:     10 * time.Minute,
			DefaultMaxSteps: 50,
		},
		Log: LogConfig{
			Dir:   defaultLogDir(),
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	switch c.Bus.Mode {
	case BusModeMemory:
	case BusModeNATS:
		if c.Bus.URL == "" {
			return fmt.Errorf("bus.url is required when bus.mode is %q", BusModeNATS)
		}
	default:
		return fmt.Errorf("bus.mode must be %q or %q, got %q", BusModeMemory, BusModeNATS, c.Bus.Mode)
	}
	if c.Task.MaxDuration <= 0 {
		return fmt.Errorf("task.max_duration must be positive")
	}
	if c.Task.DefaultMaxSteps <= 0 {
		return fmt.Errorf("task.default_max_steps must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".manus/logs"
	}
	return home + "/.manus/logs"
}
