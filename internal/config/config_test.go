package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRelayEnv(t *testing.T) {
	t.Setenv("AWX_API_ENDPOINT", "https://awx.example.com")
	t.Setenv("AWX_TOKEN", "secret")
	t.Setenv("AWX_TEMPLATE_NAME", "provision-host")
	t.Setenv("AWX_WORKFLOW_NAME", "")
	t.Setenv("AWX_USERNAME", "")
	t.Setenv("AWX_PASSWORD", "")
}

func TestLoadRelayConfigDefaults(t *testing.T) {
	setRelayEnv(t)

	cfg, err := LoadRelayConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GlobalRateLimit != "100 per hour" {
		t.Fatalf("unexpected global limit default: %q", cfg.GlobalRateLimit)
	}
	if cfg.PerIPRateLimit != "1 per 5 minutes" {
		t.Fatalf("unexpected per-ip limit default: %q", cfg.PerIPRateLimit)
	}
	if cfg.MaxHostnameLength != 253 || cfg.MinHostnameLength != 1 {
		t.Fatalf("unexpected hostname length defaults: %d/%d", cfg.MinHostnameLength, cfg.MaxHostnameLength)
	}
	if cfg.JobKind() != JobKindTemplate {
		t.Fatalf("expected template job kind, got %s", cfg.JobKind())
	}
}

func TestRelayConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RelayConfig)
	}{
		{"missing endpoint", func(c *RelayConfig) { c.AWXEndpoint = "" }},
		{"missing credentials", func(c *RelayConfig) { c.AWXToken = ""; c.AWXUsername = ""; c.AWXPassword = "" }},
		{"no job name", func(c *RelayConfig) { c.AWXTemplate = ""; c.AWXWorkflow = "" }},
		{"both job names", func(c *RelayConfig) { c.AWXWorkflow = "wf" }},
		{"inverted lengths", func(c *RelayConfig) { c.MinHostnameLength = 300 }},
	}
	for _, tc := range cases {
		cfg := &RelayConfig{
			AWXEndpoint:       "https://awx.example.com",
			AWXToken:          "secret",
			AWXTemplate:       "provision-host",
			MinHostnameLength: 1,
			MaxHostnameLength: 253,
		}
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadAgentConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	body := "relay_url: https://relay.example.com\ninterval_hours: 12\nhostname_override: db01.example.com\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAgentConfig(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RelayURL != "https://relay.example.com" {
		t.Fatalf("unexpected relay url: %q", cfg.RelayURL)
	}
	if cfg.IntervalHours != 12 {
		t.Fatalf("unexpected interval: %d", cfg.IntervalHours)
	}
	if !cfg.IsEnabled() {
		t.Fatalf("agent should default to enabled")
	}
	if cfg.HostnameOverride != "db01.example.com" {
		t.Fatalf("unexpected override: %q", cfg.HostnameOverride)
	}
}

func TestLoadAgentConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte("relay_url: https://file.example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RELAY_URL", "https://env.example.com")
	t.Setenv("INTERVAL_HOURS", "6")
	t.Setenv("AGENT_ENABLED", "false")

	cfg, err := LoadAgentConfig(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RelayURL != "https://env.example.com" {
		t.Fatalf("env override not applied: %q", cfg.RelayURL)
	}
	if cfg.IntervalHours != 6 {
		t.Fatalf("env interval not applied: %d", cfg.IntervalHours)
	}
	if cfg.IsEnabled() {
		t.Fatalf("env disable not applied")
	}
}

func TestLoadAgentConfigRejectsMissingRelayURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte("interval_hours: 24\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAgentConfig(path, true); err == nil {
		t.Fatalf("expected error for missing relay_url")
	}
}

func TestLoadAgentConfigRejectsNonPositiveInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte("relay_url: https://r\ninterval_hours: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAgentConfig(path, true); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}

func TestLoadAgentConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadAgentConfig("/nonexistent/agent.yaml", true); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
