package tokens

import "sync"

// accountants is the process-wide default Token Accountant registry
// (spec.md §4.11: "the default Token Accountant [is a] process-wide
// singleton initialized at startup"), keyed by model name so each model's
// tokenizer is loaded at most once.
var (
	accountants   = map[string]*Accountant{}
	accountantsMu sync.Mutex
)

// For returns the process-wide Accountant for model, constructing and
// caching it on first use.
func For(model string) (*Accountant, error) {
	accountantsMu.Lock()
	defer accountantsMu.Unlock()

	if a, ok := accountants[model]; ok {
		return a, nil
	}
	a, err := NewAccountant(model)
	if err != nil {
		return nil, err
	}
	accountants[model] = a
	return a, nil
}
