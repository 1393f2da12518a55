package convo

import "time"

// Session is the unit the Session Manager (C9) owns: identity, working
// directory, timestamps, provider/model configuration, the ordered
// transcript, and the extension bindings attached to it.
type Session struct {
	ID          string             `json:"id"`
	Name        string             `json:"name,omitempty"`
	WorkingDir  string              `json:"working_dir"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ProviderName string             `json:"provider_name"`
	ModelConfig ModelConfig         `json:"model_config"`
	Recipe      *Recipe             `json:"recipe,omitempty"`
	Messages    []Message           `json:"messages"`
	Extensions  []ExtensionBinding  `json:"extensions,omitempty"`
}

// ModelConfig is the provider-agnostic request shaping a session carries
// between turns (spec.md §4.3 model_config()).
type ModelConfig struct {
	ModelName       string   `json:"model_name"`
	ContextLimit    *int     `json:"context_limit,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty"`
	FastModel       *string  `json:"fast_model,omitempty"`
	ReasoningEffort *string  `json:"reasoning_effort,omitempty"`
}

// Recipe is an opaque, named parameter bundle a session may be instantiated
// from (deep-link/recipe resolution itself is an external collaborator;
// the core only stores the resolved name and parameter values).
type Recipe struct {
	Name       string            `json:"name"`
	Version    string            `json:"version,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// ExtensionBinding is a session-scoped extension configuration as described
// in spec.md §3.
type ExtensionBinding struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport"`
	Env       map[string]string `json:"env,omitempty"`
}

// Tool is the normalized description of a single callable tool exported by
// an extension (spec.md §3).
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// PermissionPolicy is the per-tool authorization disposition (spec.md §4.4).
type PermissionPolicy string

const (
	PolicyAlwaysAllow PermissionPolicy = "always_allow"
	PolicyAskBefore   PermissionPolicy = "ask_before"
	PolicyDeny        PermissionPolicy = "deny"
)

// PermissionOrigin records why a PermissionEntry holds its current policy.
type PermissionOrigin string

const (
	OriginUser         PermissionOrigin = "user"
	OriginSmartApprove PermissionOrigin = "smart_approve"
	OriginModeDefault  PermissionOrigin = "mode_default"
)

// PermissionEntry is a single tool's process-wide authorization record.
type PermissionEntry struct {
	ToolName string           `json:"tool_name"`
	Policy   PermissionPolicy `json:"policy"`
	Origin   PermissionOrigin `json:"origin"`
}

// ConfirmationPrincipal identifies who is asking for a confirmation.
type ConfirmationPrincipal string

const (
	PrincipalTool ConfirmationPrincipal = "tool"
	PrincipalUser ConfirmationPrincipal = "user"
)

// ConfirmationDecision is how a pending ConfirmationRequest is resolved.
type ConfirmationDecision string

const (
	DecisionAlwaysAllow ConfirmationDecision = "always_allow"
	DecisionAllowOnce   ConfirmationDecision = "allow_once"
	DecisionDenyOnce    ConfirmationDecision = "deny_once"
)

// ConfirmationRequest sits in a session's confirmation inbox awaiting a
// client-supplied ConfirmationDecision (spec.md §3, §4.4).
type ConfirmationRequest struct {
	ID            string                `json:"id"`
	PrincipalType ConfirmationPrincipal `json:"principal_type"`
	ToolName      string                `json:"tool_name"`
	SessionID     string                `json:"session_id"`
}

// CanonicalModelEntry is the Canonical Model Registry's (C1) lookup result:
// the normalized id plus the context/pricing data keyed by it.
type CanonicalModelEntry struct {
	CanonicalID   string  `json:"canonical_id"`
	ContextTokens int     `json:"context_tokens"`
	Pricing       Pricing `json:"pricing"`
}

// Pricing is per-1k-token USD pricing for a model.
type Pricing struct {
	InputPer1k       float64 `json:"input_per_1k"`
	OutputPer1k      float64 `json:"output_per_1k"`
	CachedInputPer1k float64 `json:"cached_input_per_1k"`
}
