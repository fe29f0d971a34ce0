package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentConfig is the host agent's configuration. It is loaded once at process
// start and treated as immutable for the process lifetime; picking up changes
// requires a restart.
type AgentConfig struct {
	RelayURL         string `yaml:"relay_url"`
	IntervalHours    int    `yaml:"interval_hours"`
	Enabled          *bool  `yaml:"enabled"`
	HostnameOverride string `yaml:"hostname_override"`
	LockPath         string `yaml:"lock_path"`
	RequestTimeoutS  int    `yaml:"request_timeout_seconds"`
}

// DefaultAgentConfigPath is where the daemon looks when --config is not given.
const DefaultAgentConfigPath = "/etc/provision-agent/agent.yaml"

// LoadAgentConfig reads the YAML config file (if present), applies environment
// overrides, fills defaults and validates. A missing file is only an error
// when the path was explicitly requested.
func LoadAgentConfig(path string, explicit bool) (*AgentConfig, error) {
	cfg := &AgentConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse agent config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Fall through to env-only configuration.
	default:
		return nil, fmt.Errorf("failed to read agent config %s: %w", path, err)
	}

	applyAgentEnvOverrides(cfg)

	if cfg.IntervalHours == 0 {
		cfg.IntervalHours = 24
	}
	if cfg.Enabled == nil {
		enabled := true
		cfg.Enabled = &enabled
	}
	if cfg.RequestTimeoutS == 0 {
		cfg.RequestTimeoutS = 10
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyAgentEnvOverrides(cfg *AgentConfig) {
	if v := os.Getenv("RELAY_URL"); v != "" {
		cfg.RelayURL = v
	}
	if v := os.Getenv("INTERVAL_HOURS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.IntervalHours = i
		}
	}
	if v := os.Getenv("AGENT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = &b
		}
	}
	if v := os.Getenv("HOSTNAME_OVERRIDE"); v != "" {
		cfg.HostnameOverride = v
	}
}

func (c *AgentConfig) Validate() error {
	if c.RelayURL == "" {
		return errors.New("relay_url is required")
	}
	if c.IntervalHours <= 0 {
		return fmt.Errorf("interval_hours must be positive, got %d", c.IntervalHours)
	}
	return nil
}

func (c *AgentConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *AgentConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

func (c *AgentConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutS) * time.Second
}
