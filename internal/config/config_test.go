package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/agentcore/internal/policy"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadMissingPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Server.Port)
	}
}

func TestLoadParsesDocument(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 4100
  secret_key: shh
session:
  capacity: 50
  turn_timeout: 5m
autopilot:
  - name: escalate-to-opus
    provider: anthropic
    model: claude-opus
    priority: 10
    source: human
    trigger_type: keyword
    keywords: ["production", "urgent"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 4100 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Session.Capacity != 50 {
		t.Fatalf("expected capacity 50, got %d", cfg.Session.Capacity)
	}
	if len(cfg.Autopilot) != 1 || cfg.Autopilot[0].Name != "escalate-to-opus" {
		t.Fatalf("expected one autopilot rule, got %+v", cfg.Autopilot)
	}
	rule := cfg.Autopilot[0].ToRule()
	if rule.Provider != "anthropic" || rule.Model != "claude-opus" {
		t.Fatalf("ToRule did not carry provider/model: %+v", rule)
	}
}

func TestLoadExpandsEnvironmentReferences(t *testing.T) {
	t.Setenv("TEST_AGENTCORE_SECRET", "from-env")
	path := writeConfig(t, `
server:
  port: 3000
  secret_key: ${TEST_AGENTCORE_SECRET}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.SecretKey != "from-env" {
		t.Fatalf("expected expanded secret, got %q", cfg.Server.SecretKey)
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	t.Setenv("GOOSE_PORT", "9999")
	t.Setenv("GOOSE_SERVER__SECRET_KEY", "override")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")

	cfg := Default()
	cfg.Server.Port = 3000
	cfg.ApplyEnv()

	if cfg.Server.Port != 9999 {
		t.Fatalf("expected GOOSE_PORT to override port, got %d", cfg.Server.Port)
	}
	if cfg.Server.SecretKey != "override" {
		t.Fatalf("expected GOOSE_SERVER__SECRET_KEY to set secret, got %q", cfg.Server.SecretKey)
	}
	if cfg.Providers["anthropic"].APIKey != "anthropic-key" {
		t.Fatalf("expected anthropic api key to be set from env, got %+v", cfg.Providers)
	}
}

func TestValidateRequiresSecretKey(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing secret key")
	}
	cfg.Server.SecretKey = "shh"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsNonPositivePort(t *testing.T) {
	cfg := Default()
	cfg.Server.SecretKey = "shh"
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive port")
	}
}

func TestModeFor(t *testing.T) {
	cases := map[string]policy.Mode{
		"":              policy.ModeInteractive,
		"auto":          policy.ModeNonInteractive,
		"smart_approve": policy.ModeSmartApprove,
		"bogus":         policy.ModeInteractive,
	}
	for in, want := range cases {
		if got := ModeFor(in); got != want {
			t.Errorf("ModeFor(%q) = %q, want %q", in, got, want)
		}
	}
}
