package providers

import (
	"context"
	"testing"

	"github.com/haasonsaas/agentcore/internal/convo"
)

func TestUsageNormalizeFillsTotal(t *testing.T) {
	u := Usage{InputTokens: 10, OutputTokens: 5}.Normalize()
	if u.TotalTokens != 15 {
		t.Fatalf("expected total 15, got %d", u.TotalTokens)
	}

	u2 := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 99}.Normalize()
	if u2.TotalTokens != 99 {
		t.Fatalf("expected total to be left alone when already set, got %d", u2.TotalTokens)
	}
}

func TestSplitReasoningEffort(t *testing.T) {
	cases := []struct {
		model      string
		wantBase   string
		wantEffort string
	}{
		{"o1-high", "o1", "high"},
		{"o3-mini-low", "o3-mini", "low"},
		{"o1", "o1", "medium"},
		{"gpt-4o", "gpt-4o", "medium"},
	}
	for _, c := range cases {
		base, effort := SplitReasoningEffort(c.model)
		if base != c.wantBase || effort != c.wantEffort {
			t.Errorf("SplitReasoningEffort(%q) = (%q, %q), want (%q, %q)", c.model, base, effort, c.wantBase, c.wantEffort)
		}
	}
}

type fakeProvider struct{ name string }

func (f *fakeProvider) Metadata() Metadata { return Metadata{Name: f.name} }
func (f *fakeProvider) Models() []ModelInfo { return nil }
func (f *fakeProvider) SupportsStreaming(model string) bool { return false }
func (f *fakeProvider) CompleteWithModel(ctx context.Context, req Request) (convo.Message, Usage, error) {
	return convo.Message{}, Usage{}, nil
}
func (f *fakeProvider) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	return nil, nil
}

func TestRegistryBuildUnknownProvider(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Build("missing", nil); err == nil {
		t.Fatal("expected an error for an unregistered provider name")
	}
}

func TestRegistryRegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", func(config map[string]string) (LLMProvider, error) {
		return &fakeProvider{name: config["name"]}, nil
	})
	p, err := r.Build("fake", map[string]string{"name": "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Metadata().Name != "test" {
		t.Fatalf("expected built provider to see its config, got %q", p.Metadata().Name)
	}
	names := r.Names()
	if len(names) != 1 || names[0] != "fake" {
		t.Fatalf("expected one registered name, got %v", names)
	}
}
