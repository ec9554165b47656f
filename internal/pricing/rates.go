// Package pricing holds the model cost-rate table. Prices are expressed in
// dollars per one million tokens, so cost in micros is price * tokens.
package pricing

import (
	"encoding/json"
	"math"
	"strings"
	"sync/atomic"
)

// Rate prices one model. Values are dollars per 1,000,000 tokens.
type Rate struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
}

// Table is an atomically swappable model-to-rate lookup. The table is
// externally configurable: it is seeded from the config file and may be
// replaced at runtime from a database settings override.
type Table struct {
	snapshot atomic.Value // stores map[string]Rate
}

// NewTable builds a table from an initial rate map. Model keys are
// normalized to lower case.
func NewTable(rates map[string]Rate) *Table {
	t := &Table{}
	t.Replace(rates)
	return t
}

// Replace swaps the entire rate map.
func (t *Table) Replace(rates map[string]Rate) {
	next := make(map[string]Rate, len(rates))
	for model, rate := range rates {
		key := strings.ToLower(strings.TrimSpace(model))
		if key == "" {
			continue
		}
		next[key] = rate
	}
	t.snapshot.Store(next)
}

// Lookup returns the rate for a model, if configured.
func (t *Table) Lookup(model string) (Rate, bool) {
	if t == nil {
		return Rate{}, false
	}
	rates, _ := t.snapshot.Load().(map[string]Rate)
	rate, ok := rates[strings.ToLower(strings.TrimSpace(model))]
	return rate, ok
}

// CostMicros computes the cost of a token count pair in micros of a dollar.
// The boolean reports whether the model had a configured rate; a missing
// model yields zero cost.
func (t *Table) CostMicros(model string, inputTokens, outputTokens int64) (int64, bool) {
	rate, ok := t.Lookup(model)
	if !ok {
		return 0, false
	}
	// Prices are per 1,000,000 tokens, so micros = price * tokens.
	total := float64(inputTokens)*rate.InputPerMillion + float64(outputTokens)*rate.OutputPerMillion
	return int64(math.Round(total)), true
}

// ParseRates decodes a JSON rate-map override, as stored in the settings
// table.
func ParseRates(raw json.RawMessage) (map[string]Rate, error) {
	var rates map[string]Rate
	if errUnmarshal := json.Unmarshal(raw, &rates); errUnmarshal != nil {
		return nil, errUnmarshal
	}
	return rates, nil
}
