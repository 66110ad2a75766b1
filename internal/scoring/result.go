package scoring

import (
	"encoding/json"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// Query is one scoring request.
type Query struct {
	Instrument instrument.Type `json:"instrument"`
	// Inputs holds the instrument-specific raw inputs as a JSON object.
	Inputs   json.RawMessage `json:"inputs"`
	Criteria norms.Criteria  `json:"criteria"`
	// TableID forces a specific active table.
	TableID *int64 `json:"table_id,omitempty"`
}

// SubscaleResult is the normative outcome of one subscale or metric.
type SubscaleResult struct {
	Subscale       instrument.Subscale `json:"subscale"`
	Raw            float64             `json:"raw"`
	Percentile     *int                `json:"percentile"`
	Classification string              `json:"classification"`
	TableID        *int64              `json:"table_id,omitempty"`
	RowID          *int64              `json:"row_id,omitempty"`
	// MatchLevel is the lookup level that produced the row, if any.
	MatchLevel string `json:"match_level,omitempty"`
}

// Result is the response of Engine.Score. Raw scores are always present once
// the inputs validate; percentile and classification degrade to sentinel
// labels when no normative data applies.
type Result struct {
	ID              string                         `json:"id"`
	Instrument      instrument.Type                `json:"instrument"`
	RawScore        *float64                       `json:"raw_score"`
	Percentile      *int                           `json:"percentile"`
	Classification  string                         `json:"classification"`
	ResolvedTableID *int64                         `json:"resolved_table_id"`
	ResolvedVia     string                         `json:"resolved_via,omitempty"`
	Subscales       []SubscaleResult               `json:"subscales,omitempty"`
	PercentOfMax    *float64                       `json:"percent_of_max,omitempty"`
	Metrics         *instrument.PalographicMetrics `json:"metrics,omitempty"`
	Interpretation  *Interpretation                `json:"interpretation,omitempty"`
	Warnings        []string                       `json:"warnings,omitempty"`
}

// Subscale returns the result of sub.
func (r Result) Subscale(sub instrument.Subscale) (SubscaleResult, bool) {
	for _, s := range r.Subscales {
		if s.Subscale == sub {
			return s, true
		}
	}
	return SubscaleResult{}, false
}

// Degraded reports whether any subscale fell back to a sentinel label.
func (r Result) Degraded() bool {
	for _, s := range r.Subscales {
		if s.Percentile == nil {
			return true
		}
	}
	return false
}
