package models

import (
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestCanonicalModelRegistryLookupByID(t *testing.T) {
	r := NewCanonicalModelRegistry()
	entry, ok := r.Lookup("anthropic", "claude-3-5-sonnet-latest")
	if !ok {
		t.Fatalf("expected lookup to succeed for a seeded model id")
	}
	if entry.ContextTokens != 200000 {
		t.Errorf("expected context window 200000, got %d", entry.ContextTokens)
	}
	if entry.Pricing.InputPer1k <= 0 {
		t.Errorf("expected positive input pricing, got %v", entry.Pricing.InputPer1k)
	}
}

func TestCanonicalModelRegistryLookupByAlias(t *testing.T) {
	r := NewCanonicalModelRegistry()
	if _, ok := r.Lookup("anthropic", "sonnet"); !ok {
		t.Fatalf("expected alias lookup to succeed")
	}
}

func TestCanonicalModelRegistryLookupMiss(t *testing.T) {
	r := NewCanonicalModelRegistry()
	if _, ok := r.Lookup("anthropic", "does-not-exist-42"); ok {
		t.Fatalf("expected lookup miss for unknown model")
	}
}

func TestCanonicalModelRegistryRegisterOverride(t *testing.T) {
	r := NewCanonicalModelRegistry()
	r.Register("openai", "gpt-5-preview", 256000, convo.Pricing{InputPer1k: 0.005, OutputPer1k: 0.02})
	entry, ok := r.Lookup("openai", "gpt-5-preview")
	if !ok {
		t.Fatalf("expected lookup to succeed after manual registration")
	}
	if entry.ContextTokens != 256000 {
		t.Errorf("expected context window 256000, got %d", entry.ContextTokens)
	}
}
