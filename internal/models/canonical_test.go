package models

import "testing"

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		provider, name, want string
	}{
		{"anthropic", "claude-3-5-sonnet-20241022", "anthropic/claude-sonnet-3.5"},
		{"anthropic", "claude-4-opus", "anthropic/claude-opus-4"},
		{"openai", "gpt-4o-2024-11-20", "openai/gpt-4o"},
		{"openai", "o1-2024-12-17", "openai/o1"},
		{"bedrock", "anthropic.claude-3-sonnet-20240229-v1:0", "anthropic/claude-sonnet-3"},
	}
	for _, c := range cases {
		if got := CanonicalName(c.provider, c.name); got != c.want {
			t.Errorf("CanonicalName(%q, %q) = %q, want %q", c.provider, c.name, got, c.want)
		}
	}
}

func TestCanonicalNameHostingProviderInference(t *testing.T) {
	if got := CanonicalName("azure", "gpt-4o-mini"); got != "openai/gpt-4o-mini" {
		t.Errorf("expected azure-hosted gpt to infer openai vendor, got %q", got)
	}
	if got := CanonicalName("openrouter", "meta-llama/llama-3-70b"); got != "meta/llama-3-70b" {
		t.Errorf("expected openrouter llama to infer meta vendor, got %q", got)
	}
}

func TestCanonicalNameSuffixStripping(t *testing.T) {
	cases := []struct {
		provider, name, want string
	}{
		{"openai", "o1-preview-1", "openai/o1"},
		{"google", "gemini-2.0-flash-exp-1", "google/gemini-2.0-flash"},
		{"openai", "gpt-4o:exacto", "openai/gpt-4o"},
		{"amazon", "titan-text-express-v1", "amazon/titan-text-express"},
		{"bedrock", "claude-3-sonnet-bedrock", "anthropic/claude-sonnet-3"},
		{"mistral", "mistral-large-123456", "mistral/large"},
	}
	for _, c := range cases {
		if got := CanonicalName(c.provider, c.name); got != c.want {
			t.Errorf("CanonicalName(%q, %q) = %q, want %q", c.provider, c.name, got, c.want)
		}
	}
}

func TestCanonicalNameIdempotent(t *testing.T) {
	first := CanonicalName("anthropic", "claude-3-5-sonnet-20241022")
	vendor, model, _ := splitCanonical(first)
	second := CanonicalName(vendor, model)
	if second != first {
		t.Errorf("expected canonicalization to be idempotent, got %q then %q", first, second)
	}
}

func splitCanonical(canonical string) (vendor, model string, ok bool) {
	for i := 0; i < len(canonical); i++ {
		if canonical[i] == '/' {
			return canonical[:i], canonical[i+1:], true
		}
	}
	return "", canonical, false
}
