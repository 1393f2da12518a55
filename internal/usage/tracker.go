package usage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Aggregate is a session's running usage/cost total, the cache entry an
// overview or leaderboard query reads instead of re-walking Records.
type Aggregate struct {
	SessionID    string  `json:"session_id"`
	RequestCount int     `json:"request_count"`
	Usage        Usage   `json:"usage"`
	CostUSD      float64 `json:"cost_usd"`
}

// TrackerConfig bounds how many Records a Tracker retains.
type TrackerConfig struct {
	MaxRecords int
}

// DefaultTrackerConfig returns sane retention bounds.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{MaxRecords: 10000}
}

// Tracker accumulates Records and maintains a per-session Aggregate cache.
// Aggregates never require re-walking the Record history: each Record
// folds into its session's Aggregate as it arrives.
type Tracker struct {
	mu         sync.RWMutex
	cfg        TrackerConfig
	records    []Record
	aggregates map[string]*Aggregate
}

// NewTracker builds a Tracker with cfg's retention bounds.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultTrackerConfig().MaxRecords
	}
	return &Tracker{cfg: cfg, aggregates: make(map[string]*Aggregate)}
}

// Record appends r and folds it into r.SessionID's Aggregate, evicting the
// oldest retained Record if the configured bound is exceeded.
func (t *Tracker) Record(r Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, r)
	if len(t.records) > t.cfg.MaxRecords {
		t.records = t.records[len(t.records)-t.cfg.MaxRecords:]
	}

	agg, ok := t.aggregates[r.SessionID]
	if !ok {
		agg = &Aggregate{SessionID: r.SessionID}
		t.aggregates[r.SessionID] = agg
	}
	agg.RequestCount++
	agg.Usage = agg.Usage.Add(r.Usage())
	agg.CostUSD += r.CostUSD
}

// Aggregate returns the current totals for sessionID, if any requests have
// been recorded for it.
func (t *Tracker) Aggregate(sessionID string) (Aggregate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	agg, ok := t.aggregates[sessionID]
	if !ok {
		return Aggregate{}, false
	}
	return *agg, true
}

// Leaderboard returns every session's Aggregate, sorted by cost
// descending, for an overview/leaderboard query.
func (t *Tracker) Leaderboard() []Aggregate {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Aggregate, 0, len(t.aggregates))
	for _, agg := range t.aggregates {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CostUSD > out[j].CostUSD })
	return out
}

// Records returns a snapshot of the retained Records, most recent last.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// ExportFormat selects Export's output encoding.
type ExportFormat string

const (
	ExportJSON     ExportFormat = "json"
	ExportCSV      ExportFormat = "csv"
	ExportMarkdown ExportFormat = "markdown"
)

// Export renders the tracker's retained Records in format.
func (t *Tracker) Export(format ExportFormat) ([]byte, error) {
	records := t.Records()
	switch format {
	case ExportJSON:
		return json.MarshalIndent(records, "", "  ")
	case ExportCSV:
		return exportCSV(records)
	case ExportMarkdown:
		return exportMarkdown(records), nil
	default:
		return nil, fmt.Errorf("usage: unknown export format %q", format)
	}
}

func exportCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"timestamp", "session_id", "model", "input_tokens", "output_tokens", "cached_tokens", "cost_usd"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			r.SessionID,
			r.Model,
			fmt.Sprint(r.InputTokens),
			fmt.Sprint(r.OutputTokens),
			fmt.Sprint(r.CachedTokens),
			fmt.Sprintf("%.6f", r.CostUSD),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportMarkdown(records []Record) []byte {
	var buf bytes.Buffer
	buf.WriteString("| timestamp | session | model | input | output | cached | cost_usd |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range records {
		fmt.Fprintf(&buf, "| %s | %s | %s | %d | %d | %d | %.6f |\n",
			r.Timestamp.Format("2006-01-02T15:04:05Z07:00"), r.SessionID, r.Model,
			r.InputTokens, r.OutputTokens, r.CachedTokens, r.CostUSD)
	}
	return buf.Bytes()
}
