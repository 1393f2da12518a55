// Package usage is the cost side of Observability / Cost (spec.md §4.10):
// per-request usage records, the cost formula keyed off the Canonical
// Model Registry's pricing, and a per-session aggregate cache for
// overview/leaderboard queries that must not re-walk history. The Record
// history is bounded; aggregates are kept for every session recorded.
package usage

import (
	"time"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// Usage is the token accounting for a single provider request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	CachedTokens int `json:"cached_tokens"`
}

// Total returns the sum of all counted tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens + u.CachedTokens
}

// Add returns the element-wise sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		CachedTokens: u.CachedTokens + other.CachedTokens,
	}
}

// defaultPricing is the conservative default applied when a model has no
// Canonical Model Registry entry, per spec.md §4.10.
var defaultPricing = convo.Pricing{
	InputPer1k:       0.01,
	OutputPer1k:      0.03,
	CachedInputPer1k: 0.01,
}

// Cost computes cost_usd for usage under pricing, per spec.md §4.10's exact
// formula: (input/1000)*in + (output/1000)*out + cached/1000*(cached-in).
func Cost(usage Usage, pricing convo.Pricing) float64 {
	in := float64(usage.InputTokens) / 1000 * pricing.InputPer1k
	out := float64(usage.OutputTokens) / 1000 * pricing.OutputPer1k
	cached := float64(usage.CachedTokens) / 1000 * (pricing.CachedInputPer1k - pricing.InputPer1k)
	return in + out + cached
}

// Record is one provider request's cost accounting.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CachedTokens int       `json:"cached_tokens"`
	CostUSD      float64   `json:"cost_usd"`
}

// NewRecord builds a Record from a completed request's usage, looking up
// pricing for model via lookup (normally a *models.CanonicalModelRegistry's
// Lookup method) and falling back to defaultPricing on a miss.
func NewRecord(sessionID, provider, model string, u Usage, lookup func(provider, model string) (convo.CanonicalModelEntry, bool)) Record {
	pricing := defaultPricing
	if lookup != nil {
		if entry, ok := lookup(provider, model); ok {
			pricing = entry.Pricing
		}
	}
	return Record{
		Timestamp:    time.Now(),
		SessionID:    sessionID,
		Model:        model,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		CachedTokens: u.CachedTokens,
		CostUSD:      Cost(u, pricing),
	}
}

// Usage reconstructs the Usage this Record was computed from.
func (r Record) Usage() Usage {
	return Usage{InputTokens: r.InputTokens, OutputTokens: r.OutputTokens, CachedTokens: r.CachedTokens}
}
