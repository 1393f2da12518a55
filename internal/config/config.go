// Package config is the ambient configuration stack (spec.md §6
// "Environment variables", §9 "Global state"): a YAML document merged
// with environment overrides, describing how the server listens,
// which providers it can build, how big the Session Manager's resident
// set is allowed to grow, and which autopilot rules run before each
// turn. Grounded on the teacher's internal/config (config.go's
// per-section struct layout, loader.go's $include-merge-then-decode
// shape) generalized from the teacher's many channel-specific sections
// down to this server's actual surface.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/agentcore/internal/autopilot"
	"github.com/haasonsaas/agentcore/internal/policy"
)

// Config is the process-wide configuration document (spec.md §9: "the
// Canonical Model Registry and default Token Accountant are process-wide
// singletons initialized at startup from bundled data" — this struct is
// what startup reads before building them).
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Session   SessionConfig             `yaml:"session"`
	Autopilot []AutopilotRuleConfig     `yaml:"autopilot"`
	LogLevel  string                    `yaml:"log_level"`

	// Mode is the Turn Driver's default interaction mode ("approve" |
	// "auto" | "smart_approve", see ModeFor), overridable per session via
	// the JSON-RPC set_session_mode method (spec.md §6).
	Mode string `yaml:"mode"`
}

// ServerConfig is the HTTP/WS listener configuration (spec.md §6:
// "GOOSE_PORT (listen port), GOOSE_SERVER__SECRET_KEY (auth)... The
// server reads its own port/secret at startup and refuses to run
// without the secret").
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	SecretKey string `yaml:"secret_key"`
}

// ProviderConfig is the per-provider-name factory configuration (spec.md
// §4.3: "concrete providers are constructed by a name -> factory table").
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Region  string `yaml:"region,omitempty"` // bedrock
}

// SessionConfig tunes the Session Manager (spec.md §4.9, §5 Concurrency &
// Resource Model).
type SessionConfig struct {
	Capacity    int           `yaml:"capacity"`
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

// AutopilotRuleConfig is the YAML shape of one autopilot.Rule (spec.md
// §4.6), decoded then converted via ToRule.
type AutopilotRuleConfig struct {
	Name              string   `yaml:"name"`
	Provider          string   `yaml:"provider"`
	Model             string   `yaml:"model"`
	Role              string   `yaml:"role,omitempty"`
	Priority          int      `yaml:"priority"`
	CooldownTurns     int      `yaml:"cooldown_turns"`
	MaxInvocations    int      `yaml:"max_invocations"`
	Source            string   `yaml:"source"` // human|machine|any
	TriggerType       string   `yaml:"trigger_type"`
	Keywords          []string `yaml:"keywords,omitempty"`
	MatchAllKeywords  bool     `yaml:"match_all_keywords,omitempty"`
	Threshold         int      `yaml:"threshold,omitempty"`
	ComplexityAtLeast string   `yaml:"complexity_at_least,omitempty"`
}

// ToRule converts a decoded AutopilotRuleConfig into an autopilot.Rule.
func (c AutopilotRuleConfig) ToRule() autopilot.Rule {
	source := autopilot.MessageSource(c.Source)
	if source == "" {
		source = autopilot.SourceAny
	}
	return autopilot.Rule{
		Name:           c.Name,
		Provider:       c.Provider,
		Model:          c.Model,
		Role:           c.Role,
		Priority:       c.Priority,
		CooldownTurns:  c.CooldownTurns,
		MaxInvocations: c.MaxInvocations,
		Source:         source,
		Trigger: autopilot.Trigger{
			Type:              autopilot.TriggerType(c.TriggerType),
			Keywords:          c.Keywords,
			MatchAll:          c.MatchAllKeywords,
			Threshold:         c.Threshold,
			ComplexityAtLeast: autopilot.ComplexityLevel(c.ComplexityAtLeast),
		},
	}
}

// Default returns a minimal runnable configuration, overridden by Load
// and ApplyEnv.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 3000},
		Session: SessionConfig{Capacity: 100, TurnTimeout: 10 * time.Minute},
	}
}

// Load reads and decodes a YAML configuration file, expanding
// ${VAR}-style environment references the way the teacher's loader.go
// expands its raw file bytes with os.ExpandEnv before parsing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays spec.md §6's named environment variables onto cfg,
// taking priority over whatever the YAML file set (environment always
// wins). Variables LoadEnvFiles read from .env.local/.env count as
// environment here; it never overrides a variable already set in the
// process environment.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("GOOSE_PORT"); port != "" {
		if n, err := parsePort(port); err == nil {
			c.Server.Port = n
		}
	}
	if secret := os.Getenv("GOOSE_SERVER__SECRET_KEY"); secret != "" {
		c.Server.SecretKey = secret
	}
	c.applyProviderKey("anthropic", "ANTHROPIC_API_KEY")
	c.applyProviderKey("openai", "OPENAI_API_KEY")
	c.applyProviderKey("venice", "VENICE_API_KEY")
}

func (c *Config) applyProviderKey(provider, envVar string) {
	key := os.Getenv(envVar)
	if key == "" {
		return
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	entry := c.Providers[provider]
	entry.APIKey = key
	c.Providers[provider] = entry
}

func parsePort(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// Validate enforces the invariants spec.md §6 names explicitly: "refuses
// to run without the secret".
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("config: server.port must be positive")
	}
	if c.Server.SecretKey == "" {
		return fmt.Errorf("config: server.secret_key (or GOOSE_SERVER__SECRET_KEY) is required")
	}
	return nil
}

// ModeFor maps a YAML-configured interaction mode string onto
// internal/policy.Mode, defaulting to interactive when unset.
func ModeFor(mode string) policy.Mode {
	switch mode {
	case "auto":
		return policy.ModeNonInteractive
	case "smart_approve":
		return policy.ModeSmartApprove
	default:
		return policy.ModeInteractive
	}
}
