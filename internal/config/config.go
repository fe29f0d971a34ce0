package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// JobKind selects which AWX object the relay launches.
type JobKind string

const (
	JobKindTemplate JobKind = "template"
	JobKindWorkflow JobKind = "workflow"
)

// RelayConfig is the relay's process configuration, loaded once from the
// environment at startup. Validation failures are fatal: the relay refuses to
// serve with a half-configured backend.
type RelayConfig struct {
	ListenAddr string

	AWXEndpoint    string
	AWXUsername    string
	AWXPassword    string
	AWXToken       string
	AWXTemplate    string
	AWXWorkflow    string
	RequestTimeout time.Duration

	GlobalRateLimit string
	PerIPRateLimit  string

	MaxHostnameLength int
	MinHostnameLength int

	RedisURL string
}

// LoadRelayConfig reads relay config from the environment and validates it.
func LoadRelayConfig() (*RelayConfig, error) {
	cfg := &RelayConfig{
		ListenAddr:        envOrDefault("LISTEN_ADDR", ":5000"),
		AWXEndpoint:       os.Getenv("AWX_API_ENDPOINT"),
		AWXUsername:       os.Getenv("AWX_USERNAME"),
		AWXPassword:       os.Getenv("AWX_PASSWORD"),
		AWXToken:          os.Getenv("AWX_TOKEN"),
		AWXTemplate:       os.Getenv("AWX_TEMPLATE_NAME"),
		AWXWorkflow:       os.Getenv("AWX_WORKFLOW_NAME"),
		RequestTimeout:    10 * time.Second,
		GlobalRateLimit:   envOrDefault("GLOBAL_RATE_LIMIT", "100 per hour"),
		PerIPRateLimit:    envOrDefault("PER_IP_RATE_LIMIT", "1 per 5 minutes"),
		MaxHostnameLength: 253,
		MinHostnameLength: 1,
		RedisURL:          os.Getenv("REDIS_URL"),
	}

	if v := os.Getenv("AWX_REQUEST_TIMEOUT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.RequestTimeout = time.Duration(i) * time.Second
		}
	}
	if v := os.Getenv("MAX_HOSTNAME_LENGTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.MaxHostnameLength = i
		}
	}
	if v := os.Getenv("MIN_HOSTNAME_LENGTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.MinHostnameLength = i
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the backend configuration invariants: an endpoint, one
// credential scheme, and exactly one of template/workflow.
func (c *RelayConfig) Validate() error {
	if c.AWXEndpoint == "" {
		return errors.New("AWX_API_ENDPOINT is required")
	}
	hasBasic := c.AWXUsername != "" && c.AWXPassword != ""
	if !hasBasic && c.AWXToken == "" {
		return errors.New("either AWX_USERNAME/AWX_PASSWORD or AWX_TOKEN is required")
	}
	if c.AWXTemplate == "" && c.AWXWorkflow == "" {
		return errors.New("either AWX_TEMPLATE_NAME or AWX_WORKFLOW_NAME is required")
	}
	if c.AWXTemplate != "" && c.AWXWorkflow != "" {
		return errors.New("cannot specify both AWX_TEMPLATE_NAME and AWX_WORKFLOW_NAME")
	}
	if c.MinHostnameLength > c.MaxHostnameLength {
		return fmt.Errorf("MIN_HOSTNAME_LENGTH %d exceeds MAX_HOSTNAME_LENGTH %d",
			c.MinHostnameLength, c.MaxHostnameLength)
	}
	return nil
}

// JobKind reports which AWX object kind this configuration launches.
func (c *RelayConfig) JobKind() JobKind {
	if c.AWXWorkflow != "" {
		return JobKindWorkflow
	}
	return JobKindTemplate
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
