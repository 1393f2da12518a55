package models

import (
	"strings"
	"sync"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// CanonicalModelRegistry is the Canonical Model Registry (spec.md §4.1): a
// process-wide lookup from a provider-reported model name to its canonical
// id, context window, and per-1k pricing. Entries are seeded at startup from
// the built-in catalog and may be extended at runtime by provider discovery.
type CanonicalModelRegistry struct {
	mu      sync.RWMutex
	entries map[string]convo.CanonicalModelEntry
}

// NewCanonicalModelRegistry builds a registry seeded from the built-in
// model catalog.
func NewCanonicalModelRegistry() *CanonicalModelRegistry {
	r := &CanonicalModelRegistry{entries: make(map[string]convo.CanonicalModelEntry)}
	for _, m := range DefaultCatalog.List(&Filter{IncludeDeprecated: true}) {
		r.seedFromModel(m)
	}
	return r
}

func (r *CanonicalModelRegistry) seedFromModel(m *Model) {
	canonical := CanonicalName(string(m.Provider), m.ID)
	entry := convo.CanonicalModelEntry{
		CanonicalID:   canonical,
		ContextTokens: m.ContextWindow,
		Pricing: convo.Pricing{
			InputPer1k:  m.InputPrice / 1000,
			OutputPer1k: m.OutputPrice / 1000,
		},
	}
	r.register(m.ID, entry)
	r.register(canonical, entry)
	for _, alias := range m.Aliases {
		r.register(alias, entry)
	}
}

func (r *CanonicalModelRegistry) register(key string, entry convo.CanonicalModelEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[strings.ToLower(key)] = entry
}

// Register adds or overwrites a single entry, keyed both by its raw model
// id/alias and by its own canonical form, so later direct lookups of the
// canonical id also succeed. Used by provider discovery to extend the
// registry past the built-in catalog.
func (r *CanonicalModelRegistry) Register(provider, modelID string, contextTokens int, pricing convo.Pricing) {
	entry := convo.CanonicalModelEntry{
		CanonicalID:   CanonicalName(provider, modelID),
		ContextTokens: contextTokens,
		Pricing:       pricing,
	}
	r.register(modelID, entry)
	r.register(entry.CanonicalID, entry)
}

// Lookup resolves a provider-reported model name to its canonical entry. It
// tries, in order: the raw name as registered, then the canonical form of
// name under provider (CanonicalName(provider, name)). A miss
// returns ok=false rather than a zero-value entry, per spec.md §4.1's
// "(canonical_id, context_tokens, pricing) | None" contract.
func (r *CanonicalModelRegistry) Lookup(provider, name string) (convo.CanonicalModelEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[strings.ToLower(name)]; ok {
		return e, true
	}
	canonical := CanonicalName(provider, name)
	if e, ok := r.entries[strings.ToLower(canonical)]; ok {
		return e, true
	}
	return convo.CanonicalModelEntry{}, false
}

// DefaultRegistry is the process-wide canonical model registry, seeded at
// package init from the built-in catalog.
var DefaultRegistry = NewCanonicalModelRegistry()
